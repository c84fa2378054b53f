package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/codec"
	"github.com/m-cahill/clarity/internal/signing"
)

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign and verify proof hashes over rendered report bytes",
	}
	cmd.AddCommand(signKeygenCmd(), signProofCmd(), signVerifyCmd())
	return cmd
}

func keyDir() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.CacheDir, "keys"), nil
}

func signKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create (or reuse) this machine's ed25519 signing key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keyDir()
			if err != nil {
				return err
			}
			kp, err := signing.LoadOrCreateKeyPair(dir)
			if err != nil {
				return err
			}
			fmt.Println(green("public key: " + kp.PublicKey))
			return nil
		},
	}
	return cmd
}

func signProofCmd() *cobra.Command {
	var (
		runID      string
		reportFile string
		signedAt   string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Sign a rendered report's SHA-256 proof hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := keyDir()
			if err != nil {
				return err
			}
			kp, err := signing.LoadOrCreateKeyPair(dir)
			if err != nil {
				return err
			}
			proofHash, err := codec.SHA256File(reportFile)
			if err != nil {
				return err
			}
			sig := kp.Sign(runID, proofHash, signedAt)
			if out != "" {
				return writeJSON(out, sig)
			}
			fmt.Printf("proof_hash=%s signature=%s\n", sig.ProofHash, sig.SignatureHex)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "identifier for this run")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "rendered report (PDF) to hash and sign")
	cmd.Flags().StringVar(&signedAt, "signed-at", "", "timestamp from the report's own metadata, not the wall clock")
	cmd.Flags().StringVar(&out, "out", "", "write the signing.Signature JSON to this path")
	cmd.MarkFlagRequired("run-id")
	cmd.MarkFlagRequired("report-file")
	cmd.MarkFlagRequired("signed-at")
	return cmd
}

func signVerifyCmd() *cobra.Command {
	var (
		signatureFile string
		reportFile    string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature against a rendered report's current hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sig signing.Signature
			if err := readJSON(signatureFile, &sig); err != nil {
				return err
			}
			proofHash, err := codec.SHA256File(reportFile)
			if err != nil {
				return err
			}
			ok, err := signing.Verify(sig, proofHash)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println(yellow("signature INVALID or report has changed"))
				return fmt.Errorf("signature verification failed")
			}
			fmt.Println(green("signature valid"))
			return nil
		},
	}
	cmd.Flags().StringVar(&signatureFile, "signature-file", "", "path to a signing.Signature JSON file")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "rendered report (PDF) to re-hash for comparison")
	cmd.MarkFlagRequired("signature-file")
	cmd.MarkFlagRequired("report-file")
	return cmd
}
