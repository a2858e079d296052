package keys

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/snugkisses/authtokens/internal/common"
)

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectGetter is the subset of the S3 client the provider needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options locates keys in a bucket of an S3-compatible store (MinIO).
type S3Options struct {
	User         string
	Password     string
	Region       string
	BaseEndpoint string
	Bucket       string

	PrivateObject string
	PublicObject  string
	RefreshObject string // empty: reuse PrivateObject
	Passphrase    string
}

// S3Provider downloads PEM objects on every call.
type S3Provider struct {
	client ObjectGetter
	opts   S3Options
}

// NewS3Provider builds an S3 client with static credentials and a custom
// endpoint.
func NewS3Provider(ctx context.Context, opts S3Options) (*S3Provider, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User,
			opts.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: load s3 config: %v", common.ErrConfiguration, err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})
	return NewS3ProviderWithClient(client, opts), nil
}

func NewS3ProviderWithClient(client ObjectGetter, opts S3Options) *S3Provider {
	return &S3Provider{client: client, opts: opts}
}

func (p *S3Provider) fetch(ctx context.Context, name, object string) ([]byte, error) {
	if p.opts.Bucket == "" {
		return nil, missing("S3_BUCKET")
	}
	if object == "" {
		return nil, missing(name)
	}

	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.opts.Bucket),
		Key:    aws.String(object),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s does not exist", common.ErrConfiguration, p.opts.Bucket, object)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", p.opts.Bucket, object, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", p.opts.Bucket, object, err)
	}
	return b, nil
}

func (p *S3Provider) PrivateSigningKey(ctx context.Context) (*Material, error) {
	b, err := p.fetch(ctx, "S3_PRIVATE_KEY_OBJECT", p.opts.PrivateObject)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b, Passphrase: []byte(p.opts.Passphrase)}, nil
}

func (p *S3Provider) PublicVerifyingKey(ctx context.Context) (*Material, error) {
	b, err := p.fetch(ctx, "S3_PUBLIC_KEY_OBJECT", p.opts.PublicObject)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b}, nil
}

func (p *S3Provider) RefreshSigningKey(ctx context.Context) (*Material, error) {
	if p.opts.RefreshObject == "" {
		return p.PrivateSigningKey(ctx)
	}
	b, err := p.fetch(ctx, "S3_REFRESH_KEY_OBJECT", p.opts.RefreshObject)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b, Passphrase: []byte(p.opts.Passphrase)}, nil
}
