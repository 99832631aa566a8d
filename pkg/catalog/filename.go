package catalog

import (
	"fmt"
	"strings"
	"time"
)

// ParsedFilename is the single structured representation every component
// depends on instead of parsing filenames ad hoc. A radar observation file
// is named:
//
//	<radar>_<volcode>_<volnum>_<field>_<YYYYMMDDTHHMMSSZ>.<ext>
//
// e.g. RMA1_0315_01_DBZH_20250101T120000Z.BUFR
type ParsedFilename struct {
	Radar       string
	VolumeCode  string
	VolumeNum   string
	Field       string
	Observation time.Time
	Ext         string
	Raw         string
}

const timeLayout = "20060102T150405Z"

// ParseFilename splits a radar observation filename into its structured
// parts. It is the one place this format is understood: the fetcher parses
// each walker candidate through it, and the assembler and converter work
// from the File rows built from those parsed parts.
func ParseFilename(name string) (ParsedFilename, error) {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return ParsedFilename{}, fmt.Errorf("catalog: filename %q has no extension", name)
	}
	stem, ext := name[:dot], name[dot+1:]

	parts := strings.Split(stem, "_")
	if len(parts) != 5 {
		return ParsedFilename{}, fmt.Errorf("catalog: filename %q does not match <radar>_<volcode>_<volnum>_<field>_<instant> layout", name)
	}

	radar, volcode, volnum, field, instantStr := parts[0], parts[1], parts[2], parts[3], parts[4]

	instant, err := time.Parse(timeLayout, instantStr)
	if err != nil {
		return ParsedFilename{}, fmt.Errorf("catalog: filename %q has invalid observation instant %q: %w", name, instantStr, err)
	}

	return ParsedFilename{
		Radar:       radar,
		VolumeCode:  volcode,
		VolumeNum:   volnum,
		Field:       field,
		Observation: instant.UTC(),
		Ext:         ext,
		Raw:         name,
	}, nil
}

// VolumeID is the identity quadruple of a Volume record: radar, volume code,
// volume number, and observation instant. Field is deliberately excluded —
// different fields observed at the same instant belong to the same volume.
type VolumeID struct {
	Radar       string
	VolumeCode  string
	VolumeNum   string
	Observation time.Time
}

// VolumeID derives the identity of the volume this file belongs to.
func (p ParsedFilename) VolumeID() VolumeID {
	return VolumeID{
		Radar:       p.Radar,
		VolumeCode:  p.VolumeCode,
		VolumeNum:   p.VolumeNum,
		Observation: p.Observation,
	}
}

// Encode renders a VolumeID as the deterministic string stored as the
// `volumes.volume_id` primary key.
func (v VolumeID) Encode() string {
	return fmt.Sprintf("%s_%s_%s_%s", v.Radar, v.VolumeCode, v.VolumeNum, v.Observation.UTC().Format(timeLayout))
}

func (v VolumeID) String() string { return v.Encode() }

// RemotePath builds the calendar-hierarchy remote path for a filename under
// a base directory, mirroring <base>/<radar>/<YYYY>/<MM>/<DD>/<HH>/<mmss>/<filename>.
func (p ParsedFilename) RemotePath(base string) string {
	t := p.Observation
	return strings.Join([]string{
		strings.TrimRight(base, "/"),
		p.Radar,
		t.Format("2006"),
		t.Format("01"),
		t.Format("02"),
		t.Format("15"),
		t.Format("0405"),
		p.Raw,
	}, "/")
}

// OutputContainerPath builds <out_root>/<radar>/YYYY/MM/DD/<radar>_<volcode>_<volnum>_<instant>.<ext>
func (v VolumeID) OutputContainerPath(outRoot, ext string) string {
	t := v.Observation
	name := fmt.Sprintf("%s_%s_%s_%s.%s", v.Radar, v.VolumeCode, v.VolumeNum, t.Format(timeLayout), ext)
	return strings.Join([]string{
		strings.TrimRight(outRoot, "/"),
		v.Radar,
		t.Format("2006"),
		t.Format("01"),
		t.Format("02"),
		name,
	}, "/")
}

// ProductPath builds <out>/<radar>/YYYY/MM/DD/<radar>_<instant>_<field>_<elev>.png
func (v VolumeID) ProductPath(outRoot, field string, elevIndex int) string {
	t := v.Observation
	name := fmt.Sprintf("%s_%s_%s_%d.png", v.Radar, t.Format(timeLayout), field, elevIndex)
	return strings.Join([]string{
		strings.TrimRight(outRoot, "/"),
		v.Radar,
		t.Format("2006"),
		t.Format("01"),
		t.Format("02"),
		name,
	}, "/")
}
