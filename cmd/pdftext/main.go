package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kamol774/pdf-text-extrator/internal/auth"
	"github.com/Kamol774/pdf-text-extrator/internal/config"
	"github.com/Kamol774/pdf-text-extrator/internal/document"
	"github.com/Kamol774/pdf-text-extrator/internal/document/extractor"
	"github.com/Kamol774/pdf-text-extrator/internal/export"
)

type options struct {
	pdfPath  string
	outDir   string
	maxBytes int64
	verbose  bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "pdftext token: %v\n", err)
			if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
				os.Exit(2)
			}
			os.Exit(1)
		}
		return
	}

	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdftext: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdftext: %s\n", document.UserMessage(err))
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdftext [flags] <pdf>\n       pdftext token -client <id> [-ttl 24h]\n")
		flag.PrintDefaults()
	}
	outDir := flag.String("out", ".", "Directory for the extracted text file")
	maxBytes := flag.Int64("max-bytes", document.DefaultMaxBytes, "Maximum accepted PDF size in bytes")
	verbose := flag.Bool("v", false, "Log per-page progress to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing pdf path")
	}
	opts.pdfPath = flag.Arg(0)
	opts.outDir = *outDir
	opts.maxBytes = *maxBytes
	opts.verbose = *verbose
	return opts, nil
}

func run(opts options) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req, err := readFile(opts.pdfPath, opts.maxBytes)
	if err != nil {
		return err
	}

	processor := document.NewProcessor(extractor.NewPDFParser(), opts.maxBytes, logger)
	result, err := processor.Extract(ctx, req)
	if err != nil {
		logger.Debug("extraction failed", "error", err)
		return err
	}

	exporter, err := export.NewDirExporter(opts.outDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Pages: %d\nCharacters: %d\nFile: %s\n", result.PageCount, result.TextLength, result.SourceFileName)
	if len(result.FailedPages) > 0 {
		fmt.Fprintf(os.Stderr, "Unreadable pages: %v\n", result.FailedPages)
	}

	if result.FullText == "" {
		fmt.Fprintln(os.Stderr, "No text found; nothing exported.")
		return nil
	}

	artifact, err := exporter.Export(ctx, result.FullText, export.SuggestedFileName(result.SourceFileName))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved: %s\n", artifact.Location)
	return nil
}

var errUsage = errors.New("usage")

// runToken prints a bearer token for the API, signed with JWT_SECRET.
func runToken(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	clientID := fs.String("client", "", "Client ID carried by the token")
	ttl := fs.Duration("ttl", 0, "Token lifetime (default JWT_TTL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clientID == "" || fs.NArg() != 0 {
		fs.Usage()
		return fmt.Errorf("%w: -client is required", errUsage)
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	lifetime := cfg.JWTTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, lifetime).GenerateToken(*clientID)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
	return nil
}

// readFile builds an upload request from a local file. The media type is
// inferred from the extension the way a browser file picker would. At most
// maxBytes+1 bytes are read; ByteSize always reports the size on disk.
func readFile(path string, maxBytes int64) (document.UploadRequest, error) {
	if maxBytes <= 0 {
		maxBytes = document.DefaultMaxBytes
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return document.UploadRequest{}, fmt.Errorf("%w: %s", document.ErrMissingFile, path)
		}
		return document.UploadRequest{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return document.UploadRequest{}, err
	}
	if info.IsDir() {
		return document.UploadRequest{}, fmt.Errorf("%w: %s is a directory", document.ErrMissingFile, path)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return document.UploadRequest{}, err
	}

	mediaType := "application/octet-stream"
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		mediaType = string(document.ContentTypePDF)
	}

	return document.UploadRequest{
		FileBytes:         data,
		DeclaredMediaType: mediaType,
		ByteSize:          max(info.Size(), int64(len(data))),
		FileName:          filepath.Base(path),
	}, nil
}
