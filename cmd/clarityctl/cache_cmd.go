package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/cache"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the on-disk artifact cache",
	}
	cmd.AddCommand(cacheGetCmd(), cachePutCmd(), cacheClearCmd(), cacheHashCmd())
	return cmd
}

func cacheManager() (*cache.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.NewManager(cfg.CacheDir, cfg.CacheLockTimeout, nil), nil
}

func cacheGetCmd() *cobra.Command {
	var key, extension, out string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a cached artifact by key",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cacheManager()
			if err != nil {
				return err
			}
			data, ok, err := m.Get(key, extension)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("cache miss for key %q", key)
			}
			if out == "" {
				fmt.Println(yellow(fmt.Sprintf("%d bytes (%s)", len(data), humanize.Bytes(uint64(len(data))))))
				return nil
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "cache key")
	cmd.Flags().StringVar(&extension, "ext", "", "file extension, e.g. .pdf")
	cmd.Flags().StringVar(&out, "out", "", "write the cached bytes here instead of printing a summary")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("ext")
	return cmd
}

func cachePutCmd() *cobra.Command {
	var key, extension, input string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store a file under a cache key",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cacheManager()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}
			path, err := m.Put(key, data, extension)
			if err != nil {
				return err
			}
			fmt.Println(green(fmt.Sprintf("stored %s (%s)", path, humanize.Bytes(uint64(len(data))))))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "cache key")
	cmd.Flags().StringVar(&extension, "ext", "", "file extension, e.g. .pdf")
	cmd.Flags().StringVar(&input, "file", "", "path of the file to store")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("ext")
	cmd.MarkFlagRequired("file")
	return cmd
}

func cacheClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cacheManager()
			if err != nil {
				return err
			}
			n, err := m.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d cached file(s)\n", n)
			return nil
		},
	}
	return cmd
}

func cacheHashCmd() *cobra.Command {
	var caseDir string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute a case's content hash for use as a cache key",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cache.ComputeCaseHash(caseDir)
			if err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseDir, "case-dir", "", "case directory to hash")
	cmd.MarkFlagRequired("case-dir")
	return cmd
}
