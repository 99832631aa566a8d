// Machine wires the Decoder/Converter's per-volume pipeline onto
// superfly/fsm, generalizing the teacher's image-fetch-mount machine
// (pkg/fsm/machine.go) to volume-decode-align-write-complete. Registering
// each stage as an FSM state gives the pipeline crash-safe resumable
// retries: the bbolt-backed manager redrives an incomplete volume from its
// last committed state after a process restart.
package decode

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/superfly/fsm"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/store"
)

// Machine holds dependencies for the decode FSM's transitions.
type Machine struct {
	store        *store.Store
	decoder      Decoder
	writer       ContainerWriter
	resourcesDir string
	containerDir string
	maxRetries   int
}

// NewMachine builds a Machine.
func NewMachine(st *store.Store, decoder Decoder, writer ContainerWriter, resourcesDir, containerDir string, maxRetries int) *Machine {
	return &Machine{
		store:        st,
		decoder:      decoder,
		writer:       writer,
		resourcesDir: resourcesDir,
		containerDir: containerDir,
		maxRetries:   maxRetries,
	}
}

// Register registers the decode FSM.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[DecodeRequest, DecodeResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[DecodeRequest, DecodeResponse](manager, "volume-decode").
		Start(StateDecodeFiles, m.handleDecodeFiles).
		To(StateAlign, m.handleAlign).
		To(StateWrite, m.handleWrite).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register decode FSM")
	}
	return start, resume, nil
}

func (m *Machine) checkRetries(ctx context.Context, id catalog.VolumeID, req *DecodeRequest) error {
	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("decode_max_retries_exceeded", "volume_id", id.Encode(), "max_retries", m.maxRetries)
		m.store.MarkVolumeFailed(ctx, id, errors.ClassDecoder, fmt.Sprintf("max retries (%d) exceeded", m.maxRetries))
		return fmt.Errorf("max retries (%d) exceeded", m.maxRetries)
	}
	return nil
}

func (m *Machine) handleDecodeFiles(ctx context.Context, req *fsm.Request[DecodeRequest, DecodeResponse]) (*fsm.Response[DecodeResponse], error) {
	id := req.Msg.VolumeID
	slog.Info("fsm_state_decode_files", "volume_id", id.Encode())

	if err := m.checkRetries(ctx, id, req.Msg); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &DecodeResponse{}
	}

	var decoded []*VolumeDict
	for _, f := range req.Msg.Files {
		if _, err := os.Stat(f.LocalPath); err != nil {
			slog.Error("decode_source_file_missing", "volume_id", id.Encode(), "path", f.LocalPath)
			m.store.MarkVolumeFailed(ctx, id, errors.ClassFileNotFound, fmt.Sprintf("missing local file %s", f.LocalPath))
			return nil, fsm.Abort(errors.New(errors.ClassFileNotFound, err))
		}

		dict, err := m.decoder.Decode(ctx, f.LocalPath, m.resourcesDir)
		if err != nil {
			slog.Warn("decode_attempt_failed", "volume_id", id.Encode(), "field", f.Field, "error", err)
			return nil, errors.Wrap(err, "decoder failed")
		}
		dict.Field = f.Field
		decoded = append(decoded, dict)
	}

	resp.Decoded = decoded
	return fsm.NewResponse(resp), nil
}

func (m *Machine) handleAlign(ctx context.Context, req *fsm.Request[DecodeRequest, DecodeResponse]) (*fsm.Response[DecodeResponse], error) {
	id := req.Msg.VolumeID
	slog.Info("fsm_state_align", "volume_id", id.Encode())

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	obj, err := Align(id.VolumeCode, id.VolumeNum, resp.Decoded)
	if err != nil {
		slog.Error("alignment_failed", "volume_id", id.Encode(), "error", err)
		m.store.MarkVolumeFailed(ctx, id, errors.ClassGeometryMismatch, err.Error())
		return nil, fsm.Abort(errors.New(errors.ClassGeometryMismatch, err))
	}

	resp.RadarObject = obj
	return fsm.NewResponse(resp), nil
}

func (m *Machine) handleWrite(ctx context.Context, req *fsm.Request[DecodeRequest, DecodeResponse]) (*fsm.Response[DecodeResponse], error) {
	id := req.Msg.VolumeID
	slog.Info("fsm_state_write_container", "volume_id", id.Encode())

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	outputPath := id.OutputContainerPath(m.containerDir, "nc")
	if err := m.writer.Write(ctx, resp.RadarObject, outputPath); err != nil {
		slog.Error("container_write_failed", "volume_id", id.Encode(), "path", outputPath, "error", err)
		os.Remove(outputPath)
		m.store.MarkVolumeFailed(ctx, id, errors.ClassIO, err.Error())
		return nil, fsm.Abort(errors.New(errors.ClassIO, err))
	}

	resp.OutputPath = outputPath
	return fsm.NewResponse(resp), nil
}

func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[DecodeRequest, DecodeResponse]) (*fsm.Response[DecodeResponse], error) {
	id := req.Msg.VolumeID
	slog.Info("fsm_state_complete", "volume_id", id.Encode())

	resp := req.W.Msg
	if resp == nil {
		resp = &DecodeResponse{}
	}

	if err := m.store.MarkVolumeProcessed(ctx, id, resp.OutputPath); err != nil {
		return nil, errors.Wrap(err, "failed to mark volume processed")
	}

	resp.Status = "completed"
	slog.Info("decode_complete", "volume_id", id.Encode(), "output_path", resp.OutputPath)
	return fsm.NewResponse(resp), nil
}
