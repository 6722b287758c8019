package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/transcript"
)

const (
	userAgent      = "Mozilla/5.0 (compatible; SalesSkillsEngine/1.0)"
	requestTimeout = 15 * time.Second
)

func main() {
	output := flag.String("out", "", "write JSON to this file instead of stdout")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: extract_transcript [-out file.json] <page.html|url>")
		os.Exit(2)
	}
	source := flag.Arg(0)

	doc, err := loadDocument(context.Background(), source)
	if err != nil {
		logger.Fatal("failed to load page", zap.String("source", source), zap.Error(err))
	}

	page, err := transcript.Extract(doc)
	if err != nil {
		logger.Fatal("failed to extract transcript", zap.String("source", source), zap.Error(err))
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode result", zap.Error(err))
	}

	if *output == "" {
		fmt.Println(string(data))
	} else if err := os.WriteFile(*output, data, 0o644); err != nil {
		logger.Fatal("failed to write result", zap.String("output", *output), zap.Error(err))
	}

	logger.Info("Transcript extracted",
		zap.String("type", string(page.Type)),
		zap.Int("speakers", len(page.Speakers)),
		zap.Int("assessed_skills", len(page.AssessedSkills)),
	)
}

func loadDocument(ctx context.Context, source string) (*goquery.Document, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return goquery.NewDocumentFromReader(f)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
