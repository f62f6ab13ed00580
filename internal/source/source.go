// Package source opens the charging-load table from the local filesystem
// or from S3-compatible object storage (s3://bucket/key).
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"ev-dashboard/pkg/metrics"
)

const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// ErrNotFound is returned when the object or file does not exist
var ErrNotFound = errors.New("source: not found")

// Location is a parsed source URI
type Location struct {
	Scheme string
	Bucket string
	// Path is the file path, or the object key for s3
	Path string
}

// Name returns the file or object name, used to pick the format
func (l Location) Name() string {
	return l.Path
}

func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		return "s3://" + l.Bucket + "/" + l.Path
	}
	return l.Path
}

// Parse accepts a plain path, a file:// URI or s3://bucket/key
func Parse(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("source: empty location")
	}

	switch {
	case strings.HasPrefix(raw, "s3://"):
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, fmt.Errorf("source: parse %q: %w", raw, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("source: %q must be s3://bucket/key", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: u.Host, Path: key}, nil
	case strings.HasPrefix(raw, "file://"):
		return Location{Scheme: SchemeFile, Path: strings.TrimPrefix(raw, "file://")}, nil
	default:
		return Location{Scheme: SchemeFile, Path: raw}, nil
	}
}

// ObjectGetter is the subset of *s3.Client used to read objects
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the object-storage client
type S3Config struct {
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO, R2); path-style addressing is used when set
	Endpoint string
}

// Opener opens source locations and times each read
type Opener struct {
	s3cfg   S3Config
	metrics *metrics.Collector

	once   sync.Once
	client ObjectGetter
	err    error
}

// NewOpener creates an Opener. The S3 client is built on first use.
func NewOpener(s3cfg S3Config, collector *metrics.Collector) *Opener {
	return &Opener{s3cfg: s3cfg, metrics: collector}
}

// NewOpenerWithClient uses the given object client instead of building one
func NewOpenerWithClient(client ObjectGetter, collector *metrics.Collector) *Opener {
	o := &Opener{client: client, metrics: collector}
	o.once.Do(func() {})
	return o
}

// Open returns a reader over the location's content. Callers close it.
func (o *Opener) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if o.metrics != nil {
		timer := o.metrics.NewTimer(o.metrics.SourceLoadDuration.WithLabelValues(loc.Scheme))
		defer timer.ObserveDuration()
	}

	switch loc.Scheme {
	case SchemeFile:
		f, err := os.Open(loc.Path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("source: open %q: %w", loc.Path, err)
		}
		return f, nil
	case SchemeS3:
		return o.openObject(ctx, loc)
	}
	return nil, fmt.Errorf("source: unsupported scheme %q", loc.Scheme)
}

func (o *Opener) openObject(ctx context.Context, loc Location) (io.ReadCloser, error) {
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("source: get %q: %w", loc.String(), err)
	}
	return out.Body, nil
}

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	o.once.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{}
		if o.s3cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(o.s3cfg.Region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			o.err = fmt.Errorf("source: load aws config: %w", err)
			return
		}

		o.client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if o.s3cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(o.s3cfg.Endpoint)
				so.UsePathStyle = true
			}
		})
	})
	return o.client, o.err
}
