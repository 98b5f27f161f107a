package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads files over FTP. Credentials come from the URL's user
// info; without them it logs in anonymously, as public data mirrors expect.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

type ftpTarget struct {
	addr     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "fetcher: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("fetcher: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.New("fetcher: empty path in ftp url")
	}

	t := ftpTarget{addr: u.Host, path: u.Path, user: "anonymous", password: "anonymous@"}
	if _, _, splitErr := net.SplitHostPort(t.addr); splitErr != nil {
		t.addr = net.JoinHostPort(t.addr, "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// ftpBody closes the transfer and the control connection together.
type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	respErr := b.Response.Close()
	quitErr := b.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "fetcher: close ftp transfer")
	}
	return eris.Wrap(quitErr, "fetcher: quit ftp connection")
}

// Download implements Fetcher. Closing the body releases the connection.
func (f *FTPFetcher) Download(ctx context.Context, location string) (io.ReadCloser, error) {
	t, err := parseFTPURL(location)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("fetcher: ftp connect", zap.String("addr", t.addr), zap.String("path", t.path))

	conn, err := ftp.Dial(t.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: ftp dial %s", t.addr)
	}
	if err := conn.Login(t.user, t.password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "fetcher: ftp login")
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "fetcher: ftp retrieve %s", t.path)
	}
	return &ftpBody{Response: resp, conn: conn}, nil
}
