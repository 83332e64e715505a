package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	adapters "github.com/yukibtc/keechain-dist/internal/domain-adapters/gateways"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/external-adapters/gpg"
)

type verifyOptions struct {
	sha256    string
	signature string
	keys      []string
}

func newVerifyCommand(a *app) *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <artifact>...",
		Short: "Verify checksums, wheel RECORDs and signatures",
		Long: `Verify built artifacts.

Wheels always have their RECORD checked against the archive contents. The
SHA256 digest is checked against --sha256 (a hex digest or a checksum file)
or, when present, the artifact's .sha256 sidecar. Signatures are checked
when --key is given, using --signature or the artifact's .asc sidecar.
An artifact for which none of these checks applies fails verification.`,
		Example: `  keechain-dist verify dist/keechain-0.1.0-cp311-cp311-linux_x86_64.whl
  keechain-dist verify dist/*.whl --key release-pub.asc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sha256 != "" && len(args) > 1 {
				return fmt.Errorf("--sha256 applies to a single artifact")
			}
			if opts.signature != "" && len(args) > 1 {
				return fmt.Errorf("--signature applies to a single artifact")
			}
			if opts.signature != "" && len(opts.keys) == 0 {
				return fmt.Errorf("--signature needs at least one --key to verify against")
			}
			return runVerify(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.sha256, "sha256", "", "Expected SHA256 digest or path to a checksum file")
	cmd.Flags().StringVar(&opts.signature, "signature", "", "Detached signature file (default: <artifact>.asc)")
	cmd.Flags().StringSliceVar(&opts.keys, "key", nil, "Armored public key to verify signatures with (repeatable)")

	return cmd
}

func runVerify(cmd *cobra.Command, a *app, opts *verifyOptions, artifacts []string) error {
	out := cmd.OutOrStdout()
	checksums := adapters.NewChecksumVerifier()

	var pgp *gpg.Verifier
	if len(opts.keys) > 0 {
		pgp = gpg.NewVerifier()
		for _, key := range opts.keys {
			if err := pgp.ImportKeyFromFile(key); err != nil {
				return err
			}
		}
	}

	failed := 0
	for _, artifact := range artifacts {
		fmt.Fprintf(out, "Verifying %s\n", filepath.Base(artifact))
		checks := 0
		report := func(check string, err error) {
			checks++
			if err != nil {
				failed++
				a.logger.Debug("check failed", interfaces.F("artifact", artifact), interfaces.F("check", check), interfaces.Err(err))
				fmt.Fprintf(out, "  FAIL %s: %v\n", check, err)
				return
			}
			fmt.Fprintf(out, "  ok   %s\n", check)
		}

		if strings.HasSuffix(artifact, ".whl") {
			report("record", checksums.VerifyWheelRecord(cmd.Context(), artifact))
		}

		expected, source, err := expectedDigest(opts.sha256, artifact)
		switch {
		case err != nil:
			report("sha256", err)
		case expected != "":
			report("sha256 ("+source+")", checksums.VerifyChecksum(cmd.Context(), artifact, expected))
		}

		if pgp != nil {
			sigPath := opts.signature
			if sigPath == "" {
				sigPath = artifact + ".asc"
			}
			report("signature", pgp.VerifySignatureFromFile(artifact, sigPath))
		}

		if checks == 0 {
			report("checks", fmt.Errorf("nothing to verify: no RECORD, no .sha256 sidecar, no --sha256 and no --key"))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	a.logger.Debug("verification passed")
	return nil
}

// expectedDigest resolves the digest to compare against. flagValue is either
// a hex digest or a checksum file; without it the .sha256 sidecar is used if present.
func expectedDigest(flagValue, artifact string) (string, string, error) {
	if flagValue != "" && isHexDigest(flagValue) {
		return strings.ToLower(flagValue), "flag", nil
	}

	checksumFile := flagValue
	if checksumFile == "" {
		checksumFile = artifact + ".sha256"
		if _, err := os.Stat(checksumFile); err != nil {
			return "", "", nil
		}
	}

	sum, err := digestFromFile(checksumFile, filepath.Base(artifact))
	if err != nil {
		return "", "", err
	}
	return sum, filepath.Base(checksumFile), nil
}

// digestFromFile reads a sha256sum-style file. A single-line file applies to
// any artifact; otherwise the line naming the artifact is used.
func digestFromFile(checksumFile, name string) (string, error) {
	//nolint:gosec // G304: checksum file is provided by user
	f, err := os.Open(checksumFile)
	if err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	var lines [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if fields := strings.Fields(scanner.Text()); len(fields) > 0 {
			lines = append(lines, fields)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	if len(lines) == 1 {
		return lines[0][0], nil
	}
	for _, fields := range lines {
		if len(fields) >= 2 && strings.TrimPrefix(fields[len(fields)-1], "*") == name {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("no checksum for %s in %s", name, checksumFile)
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range strings.ToLower(s) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
