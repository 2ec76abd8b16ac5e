package secrets

import (
	"context"
	"hash/crc32"
	"testing"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

func TestGetSecret_EnvOverride(t *testing.T) {
	t.Setenv("ORS_API_KEY", "local-key")
	got, err := (&SecretsAdapter{}).GetSecret(context.Background(), "proj", "ORS_API_KEY")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if got != "local-key" {
		t.Errorf("Expected env value, got %q", got)
	}
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("s3cret")
	sum := int64(crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli)))
	bad := sum + 1

	if err := verifyChecksum(data, &sum); err != nil {
		t.Errorf("Expected valid checksum, got %v", err)
	}
	if err := verifyChecksum(data, nil); err != nil {
		t.Errorf("Expected nil checksum to pass, got %v", err)
	}
	if err := verifyChecksum(data, &bad); hubErrors.GetCode(err) != hubErrors.CodeSecretError {
		t.Errorf("Expected SECRET_ERROR, got %v", err)
	}
}
