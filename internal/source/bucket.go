package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Bucket is a folder of scenario files under an S3 key prefix. Nested
// "folders" below the prefix are not descended into.
type Bucket struct {
	API    S3API
	Name   string
	Prefix string
}

func (b *Bucket) Location() string {
	return "s3://" + b.Name + "/" + b.Prefix
}

func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(b.API, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Name),
		Prefix: aws.String(b.Prefix + prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", b.Location(), err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), b.Prefix)
			if rel == "" || strings.Contains(rel, "/") {
				continue
			}
			names = append(names, rel)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(b.Prefix, name)
	out, err := b.API.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.Name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", b.Name, key, err)
	}
	return maybeGunzip(name, out.Body)
}
