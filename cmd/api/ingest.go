package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/rag/ingest"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

var ingestCollection string

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Index local files into an existing filebook",
	Long:  "Runs the same parse, chunk, embed and index pipeline as POST /upload, as an administrator.",
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "target filebook id")
	_ = ingestCmd.MarkFlagRequired("collection")
}

func runIngest(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stop := make(chan bool)
	var workers sync.WaitGroup
	defer func() {
		close(stop)
		workers.Wait()
	}()

	a, err := buildApp(ctx, settings, stop, &workers)
	if err != nil {
		return err
	}

	operator := filebookModel.Session{UserId: "cli-operator", Role: filebookModel.RoleAdmin, Plan: filebookModel.PlanPro}
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		ictx, icancel := context.WithTimeout(ctx, config.IngestTimeout)
		res, err := a.ingestor.Ingest(ictx, ingest.Upload{
			Session:      operator,
			CollectionId: ingestCollection,
			FileName:     filepath.Base(path),
			MediaType:    mimetype.Detect(data).String(),
			Data:         data,
		})
		icancel()
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %s\n", path, filebookModel.AsError(err).Message)
			continue
		}
		fmt.Fprintf(out, "%s: document %s, %d/%d chunks\n", path, res.Document.Id, res.ChunksProcessed, res.TotalChunks)
		if res.Warning != "" {
			fmt.Fprintf(out, "  warning: %s\n", res.Warning)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
