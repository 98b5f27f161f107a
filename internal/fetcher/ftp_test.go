package fetcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ftpStub answers the handful of commands the ftp client sends for a
// login and a single passive-mode RETR.
type ftpStub struct {
	ln    net.Listener
	files map[string]string
	wg    sync.WaitGroup

	mu     sync.Mutex
	logins []string
}

func newFTPStub(t *testing.T, files map[string]string) *ftpStub {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &ftpStub{ln: ln, files: files}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go s.handle(conn)
		}
	}()
	t.Cleanup(func() {
		ln.Close() //nolint:errcheck
		s.wg.Wait()
	})
	return s
}

func (s *ftpStub) url(path string) string {
	return "ftp://" + s.ln.Addr().String() + path
}

func (s *ftpStub) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close() //nolint:errcheck

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	reply := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format+"\r\n", args...)
		_ = w.Flush()
	}

	reply("220 ready")
	var data net.Listener
	user := ""
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

		switch strings.ToUpper(cmd) {
		case "USER":
			user = arg
			reply("331 password required")
		case "PASS":
			s.mu.Lock()
			s.logins = append(s.logins, user+":"+arg)
			s.mu.Unlock()
			reply("230 logged in")
		case "FEAT":
			reply("211 no features")
		case "TYPE":
			reply("200 type %s", arg)
		case "EPSV":
			if data, err = net.Listen("tcp", "127.0.0.1:0"); err != nil {
				reply("425 no data connection")
				continue
			}
			reply("229 Entering Extended Passive Mode (|||%d|)", data.Addr().(*net.TCPAddr).Port)
		case "RETR":
			content, ok := s.files[arg]
			if !ok || data == nil {
				reply("550 not found")
				if data != nil {
					data.Close() //nolint:errcheck
					data = nil
				}
				continue
			}
			reply("150 opening data connection")
			dc, err := data.Accept()
			if err == nil {
				_, _ = io.WriteString(dc, content)
				_ = dc.Close()
			}
			data.Close() //nolint:errcheck
			data = nil
			reply("226 transfer complete")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func TestFTPFetcher_Download(t *testing.T) {
	stub := newFTPStub(t, map[string]string{"/geo/zip3.zip": "PK-archive"})

	f := NewFTPFetcher(FTPOptions{Timeout: 5 * time.Second})
	body, err := f.Download(context.Background(), stub.url("/geo/zip3.zip"))
	require.NoError(t, err)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "PK-archive", string(data))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"anonymous:anonymous@"}, stub.logins)
}

func TestFTPFetcher_Credentials(t *testing.T) {
	stub := newFTPStub(t, map[string]string{"/lookup.csv": "state,zipcode\n"})

	loc := strings.Replace(stub.url("/lookup.csv"), "ftp://", "ftp://census:secret@", 1)
	body, err := NewFTPFetcher(FTPOptions{}).Download(context.Background(), loc)
	require.NoError(t, err)
	_, _ = io.ReadAll(body)
	require.NoError(t, body.Close())

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"census:secret"}, stub.logins)
}

func TestFTPFetcher_NotFound(t *testing.T) {
	stub := newFTPStub(t, nil)

	_, err := NewFTPFetcher(FTPOptions{Timeout: 5 * time.Second}).Download(context.Background(), stub.url("/missing.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp retrieve /missing.zip")
}

func TestFTPFetcher_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewFTPFetcher(FTPOptions{Timeout: time.Second}).Download(context.Background(), "ftp://"+addr+"/x.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp dial")
}

func TestParseFTPURL(t *testing.T) {
	tgt, err := parseFTPURL("ftp://ftp2.census.gov/geo/tiger/zcta.zip")
	require.NoError(t, err)
	assert.Equal(t, "ftp2.census.gov:21", tgt.addr)
	assert.Equal(t, "/geo/tiger/zcta.zip", tgt.path)
	assert.Equal(t, "anonymous", tgt.user)

	tgt, err = parseFTPURL("ftp://u:p@example.com:2121/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "example.com:2121", tgt.addr)
	assert.Equal(t, "u", tgt.user)
	assert.Equal(t, "p", tgt.password)

	for _, bad := range []string{"http://example.com/a", "ftp://example.com", "ftp://example.com/", "://bad"} {
		_, err := parseFTPURL(bad)
		assert.Error(t, err, bad)
	}
}
