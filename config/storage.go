package config

import (
	"errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func (c *Config) NewMinioClient() (*minio.Client, error) {
	if c.MinIO.URL == "" {
		return nil, errors.New("minio.url is required")
	}
	return minio.New(c.MinIO.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(c.MinIO.AccessID, c.MinIO.SecretAccessKey, ""),
		Secure: c.MinIO.Secure,
		Region: c.MinIO.Region,
	})
}
