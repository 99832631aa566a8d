// Package remote provides the Fetcher's upstream: a listing + streaming
// download client for the remote file server, and a calendar-hierarchy
// traversal (CalendarWalker) over it.
package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	pkgerrors "github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/pathsafety"
)

// Client speaks to the remote file server. It is modeled as an
// S3-compatible endpoint: host/username/password become an endpoint URL
// plus static credentials, since the spec's host+credential auth model has
// no unvendored FTP-client analog in the dependency set this client is
// built from.
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient builds a Client authenticated against host with username/password
// as a static credential pair.
func NewClient(ctx context.Context, host, username, password, bucket, region string) (*Client, error) {
	slog.Info("remote_client_init", "host", host, "bucket", bucket, "region", region)

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(username, password, "")),
	)
	if err != nil {
		slog.Error("remote_config_load_failed", "error", err)
		return nil, pkgerrors.Wrap(err, "failed to load remote client config")
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if host != "" {
			o.BaseEndpoint = aws.String(host)
		}
		o.UsePathStyle = true
	})

	return &Client{s3Client: s3Client, bucket: bucket}, nil
}

// Entry is one directory listing result: either a pseudo-directory prefix
// or an object.
type Entry struct {
	Name        string
	IsDirectory bool
	Size        int64
}

// ListDir lists the immediate children of prefix (which must end in "/" or
// be empty), returning pseudo-directories and objects one level down, the
// way the calendar hierarchy is traversed one segment at a time.
func (c *Client) ListDir(ctx context.Context, prefix string) ([]Entry, error) {
	slog.Info("remote_list_start", "bucket", c.bucket, "prefix", prefix)

	out, err := c.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		if isNotFound(err) {
			slog.Info("remote_list_not_found", "prefix", prefix)
			return nil, pkgerrors.New(pkgerrors.ClassFileNotFound, err)
		}
		slog.Error("remote_list_failed", "prefix", prefix, "error", err)
		return nil, pkgerrors.New(pkgerrors.ClassTransient, pkgerrors.Wrap(err, "failed to list remote directory"))
	}

	var entries []Entry
	for _, cp := range out.CommonPrefixes {
		if cp.Prefix == nil {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
		entries = append(entries, Entry{Name: name, IsDirectory: true})
	}
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		name := strings.TrimPrefix(*obj.Key, prefix)
		if name == "" {
			continue
		}
		size := int64(0)
		if obj.Size != nil {
			size = *obj.Size
		}
		entries = append(entries, Entry{Name: name, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	slog.Info("remote_list_complete", "prefix", prefix, "entry_count", len(entries))
	return entries, nil
}

// DownloadResult summarizes a streaming download. On failure after the
// object stream opened, Size and TotalBytes still carry what was
// transferred and expected respectively, so a transient failure can be
// recorded with real progress instead of zeros.
type DownloadResult struct {
	LocalPath  string
	SHA256     string
	Size       int64
	TotalBytes int64
}

// Download streams remoteKey to a local temp path, computing a running
// SHA-256 as it copies. The caller is responsible for renaming the temp
// path into place only after verification succeeds.
func (c *Client) Download(ctx context.Context, remoteKey, localTempPath string) (*DownloadResult, error) {
	slog.Info("remote_download_start", "bucket", c.bucket, "key", remoteKey)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(remoteKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.ClassFileNotFound, err)
		}
		slog.Error("remote_get_object_failed", "key", remoteKey, "error", err)
		return nil, pkgerrors.New(pkgerrors.ClassTransient, pkgerrors.Wrap(err, "failed to open remote object"))
	}
	defer result.Body.Close()

	var totalBytes int64
	if result.ContentLength != nil {
		totalBytes = *result.ContentLength
	}

	f, err := os.Create(localTempPath)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ClassIO, pkgerrors.Wrap(err, "failed to create local temp file"))
	}
	defer f.Close()

	hash := sha256.New()
	writer := io.MultiWriter(f, hash)

	size, err := io.Copy(writer, result.Body)
	if err != nil {
		slog.Error("remote_download_failed", "key", remoteKey, "error", err)
		partial := &DownloadResult{LocalPath: localTempPath, Size: size, TotalBytes: totalBytes}
		return partial, pkgerrors.New(pkgerrors.ClassTransient, pkgerrors.Wrap(err, "failed to stream remote object"))
	}

	if result.ContentLength != nil && *result.ContentLength != size {
		partial := &DownloadResult{LocalPath: localTempPath, Size: size, TotalBytes: totalBytes}
		return partial, pkgerrors.New(pkgerrors.ClassTransient, errors.New("downloaded size does not match server-reported size"))
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("remote_download_complete", "key", remoteKey, "size", size, "sha256", checksum[:16]+"...")

	return &DownloadResult{LocalPath: localTempPath, SHA256: checksum, Size: size, TotalBytes: totalBytes}, nil
}

func isNotFound(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	return false
}

// SafeJoin joins name onto base after validating it carries no traversal
// sequence, since remote listings feed directly into local path construction.
func SafeJoin(base, name string) (string, error) {
	return pathsafety.JoinUnderRoot(base, name)
}
