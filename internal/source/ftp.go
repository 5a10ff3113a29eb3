package source

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DrawingFetcherOptions configures the FTP drawing fetcher.
type DrawingFetcherOptions struct {
	Host     string // host or host:port, port defaults to 21
	User     string // defaults to anonymous
	Password string
	Dir      string // remote directory holding the drawings
	Timeout  time.Duration
}

// DrawingFetcher mirrors the DXF drop directory from an FTP share.
type DrawingFetcher struct {
	opts DrawingFetcherOptions
}

// NewDrawingFetcher creates a fetcher with the given options.
func NewDrawingFetcher(opts DrawingFetcherOptions) *DrawingFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	if _, _, err := net.SplitHostPort(opts.Host); err != nil {
		opts.Host = net.JoinHostPort(opts.Host, "21")
	}
	return &DrawingFetcher{opts: opts}
}

// FetchAll downloads every .dxf file in the remote directory into
// destDir and returns the local paths.
func (f *DrawingFetcher) FetchAll(ctx context.Context, destDir string) ([]string, error) {
	conn, err := ftp.Dial(f.opts.Host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "source: ftp dial")
	}
	defer conn.Quit()

	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		return nil, eris.Wrap(err, "source: ftp login")
	}

	entries, err := conn.List(f.opts.Dir)
	if err != nil {
		return nil, eris.Wrap(err, "source: ftp list")
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "source: create drawing directory")
	}

	var paths []string
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name), ".dxf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return paths, eris.Wrap(err, "source: ftp fetch cancelled")
		}

		local := filepath.Join(destDir, entry.Name)
		if err := f.download(conn, path.Join(f.opts.Dir, entry.Name), local); err != nil {
			return paths, err
		}
		zap.L().Debug("fetched drawing", zap.String("file", entry.Name))
		paths = append(paths, local)
	}

	zap.L().Info("drawing directory mirrored",
		zap.String("host", f.opts.Host), zap.Int("files", len(paths)))
	return paths, nil
}

func (f *DrawingFetcher) download(conn *ftp.ServerConn, remote, local string) error {
	resp, err := conn.Retr(remote)
	if err != nil {
		return eris.Wrapf(err, "source: ftp retrieve %s", remote)
	}
	defer resp.Close()

	file, err := os.Create(local)
	if err != nil {
		return eris.Wrap(err, "source: create local drawing")
	}
	defer file.Close()

	if _, err := io.Copy(file, resp); err != nil {
		return eris.Wrapf(err, "source: write %s", local)
	}
	return nil
}
