// Package secrets reads API keys from Secret Manager, with an environment
// variable override for local runs.
package secrets

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

type SecretsAdapter struct{}

func (a *SecretsAdapter) GetSecret(ctx context.Context, projectID, secretName string) (string, error) {
	// 1. Local Fallback
	if val := os.Getenv(secretName); val != "" {
		slog.Debug("Using local env var for secret", "secret", secretName)
		return val, nil
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", hubErrors.ErrSecretError.WithMessage("create secretmanager client").WithCause(err)
	}
	defer client.Close()

	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretName),
	}
	result, err := client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", hubErrors.ErrSecretError.WithMessagef("access secret %s", secretName).WithCause(err)
	}

	if err := verifyChecksum(result.Payload.Data, result.Payload.DataCrc32C); err != nil {
		return "", err
	}
	return string(result.Payload.Data), nil
}

func verifyChecksum(data []byte, want *int64) error {
	if want == nil {
		return nil
	}
	crc32c := crc32.MakeTable(crc32.Castagnoli)
	if int64(crc32.Checksum(data, crc32c)) != *want {
		return hubErrors.ErrSecretError.WithMessage("secret payload checksum mismatch")
	}
	return nil
}
