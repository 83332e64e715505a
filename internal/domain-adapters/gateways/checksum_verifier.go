package gateways

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

// ChecksumVerifier verifies artifact digests and the RECORD of built wheels
type ChecksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
func NewChecksumVerifier() *ChecksumVerifier {
	return &ChecksumVerifier{}
}

// VerifyChecksum verifies a file's SHA256 checksum
func (v *ChecksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	if actualSum != strings.ToLower(strings.TrimSpace(expectedSum)) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedSum, actualSum)
	}

	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (v *ChecksumVerifier) CalculateChecksum(filePath string) (string, error) {
	return services.FileDigest(filePath, sha256.New())
}

// VerifyWheelRecord checks that every file in a wheel is listed in its RECORD
// with a matching sha256 digest and size, and that RECORD lists nothing extra.
func (v *ChecksumVerifier) VerifyWheelRecord(ctx context.Context, wheelPath string) error {
	zr, err := zip.OpenReader(wheelPath)
	if err != nil {
		return fmt.Errorf("failed to open wheel: %w", err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer zr.Close()

	var recordFile *zip.File
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
		if strings.HasSuffix(f.Name, ".dist-info/RECORD") {
			recordFile = f
		}
	}
	if recordFile == nil {
		return fmt.Errorf("wheel %s has no RECORD", wheelPath)
	}

	rc, err := recordFile.Open()
	if err != nil {
		return fmt.Errorf("failed to open RECORD: %w", err)
	}
	rows, err := csv.NewReader(rc).ReadAll()
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("failed to parse RECORD: %w", err)
	}

	listed := make(map[string]bool, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(row) != 3 {
			return fmt.Errorf("malformed RECORD row: %v", row)
		}
		name, digest, size := row[0], row[1], row[2]
		listed[name] = true

		if name == recordFile.Name {
			continue
		}
		f, ok := files[name]
		if !ok {
			return fmt.Errorf("RECORD lists missing file %s", name)
		}
		if err := verifyRecordRow(f, digest, size); err != nil {
			return err
		}
	}

	for name := range files {
		if !listed[name] {
			return fmt.Errorf("file %s is not listed in RECORD", name)
		}
	}

	return nil
}

func verifyRecordRow(f *zip.File, digest, size string) error {
	algo, encoded, ok := strings.Cut(digest, "=")
	if !ok || algo != "sha256" {
		return fmt.Errorf("unsupported RECORD digest for %s: %q", f.Name, digest)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	//nolint:errcheck // Defer close on read-only entry
	defer rc.Close()

	h := sha256.New()
	n, err := io.Copy(h, rc)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", f.Name, err)
	}

	if got := base64.RawURLEncoding.EncodeToString(h.Sum(nil)); got != encoded {
		return fmt.Errorf("digest mismatch for %s: RECORD %s, actual %s", f.Name, encoded, got)
	}
	if want, err := strconv.ParseInt(size, 10, 64); err != nil || want != n {
		return fmt.Errorf("size mismatch for %s: RECORD %s, actual %d", f.Name, size, n)
	}
	return nil
}
