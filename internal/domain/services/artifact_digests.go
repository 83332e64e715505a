package services

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
)

// ChecksumsFileName is the combined digest list written next to the artifacts
const ChecksumsFileName = "SHA256SUMS"

// DigestService writes checksum files for emitted artifacts
type DigestService struct {
	logger interfaces.Logger
}

// NewDigestService creates a new digest service
func NewDigestService(logger interfaces.Logger) *DigestService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &DigestService{logger: logger}
}

// ArtifactDigests are the sidecar files written for one artifact
type ArtifactDigests struct {
	SHA256     string
	SHA256Path string
	SHA512Path string
}

// GenerateAll writes .sha256 and .sha512 sidecars for an artifact
func (s *DigestService) GenerateAll(filePath string) (*ArtifactDigests, error) {
	sum, sha256Path, err := s.GenerateSHA256(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SHA256: %w", err)
	}

	sha512Path, err := s.GenerateSHA512(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SHA512: %w", err)
	}

	s.logger.Debug("wrote digests", interfaces.F("artifact", filepath.Base(filePath)), interfaces.F("sha256", sum))

	return &ArtifactDigests{SHA256: sum, SHA256Path: sha256Path, SHA512Path: sha512Path}, nil
}

// GenerateSHA256 writes filePath.sha256 and returns the hex digest and sidecar path
func (s *DigestService) GenerateSHA256(filePath string) (string, string, error) {
	sum, err := FileDigest(filePath, sha256.New())
	if err != nil {
		return "", "", err
	}

	checksumPath := filePath + ".sha256"
	if err := writeChecksumLine(checksumPath, sum, filePath); err != nil {
		return "", "", fmt.Errorf("failed to write SHA256 file: %w", err)
	}

	return sum, checksumPath, nil
}

// GenerateSHA512 writes filePath.sha512 and returns the sidecar path
func (s *DigestService) GenerateSHA512(filePath string) (string, error) {
	sum, err := FileDigest(filePath, sha512.New())
	if err != nil {
		return "", err
	}

	checksumPath := filePath + ".sha512"
	if err := writeChecksumLine(checksumPath, sum, filePath); err != nil {
		return "", fmt.Errorf("failed to write SHA512 file: %w", err)
	}

	return checksumPath, nil
}

// WriteChecksumsFile writes SHA256SUMS in dir covering the given artifacts, sorted by filename
func (s *DigestService) WriteChecksumsFile(dir string, artifacts []*entities.Artifact) (string, error) {
	lines := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		sum, err := FileDigest(artifact.Path, sha256.New())
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%s  %s", sum, filepath.Base(artifact.Path)))
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i][66:] < lines[j][66:]
	})

	path := filepath.Join(dir, ChecksumsFileName)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ChecksumsFileName, err)
	}

	return path, nil
}

// FileDigest streams a file through h and returns the hex digest
func FileDigest(filePath string, h hash.Hash) (string, error) {
	//nolint:gosec // G304: filePath is an artifact produced by this build
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeChecksumLine(checksumPath, sum, filePath string) error {
	content := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	return os.WriteFile(checksumPath, []byte(content), 0600)
}
