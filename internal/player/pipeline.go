package player

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// pipelineOptions is resolved once per connection attempt.
type pipelineOptions struct {
	decoder       string
	logLevel      string
	fallbackKbps  int
	bufferSeconds int
}

type pipelineEvents struct {
	onReady func()
	onIcy   func(title string)
	onError func(err *Error)
	onEOF   func()
}

var streamTitleRe = regexp.MustCompile(`StreamTitle='(.*?)';`)

// Content types ffplay is known to choke on. Anything else non-audio is an
// invalid source, not an unsupported one.
var unsupportedTypes = map[string]bool{
	"audio/x-ms-wma": true,
	"audio/x-ms-wax": true,
}

// runPipeline connects to the stream, demuxes interleaved ICY metadata and
// feeds raw audio into the decoder subprocess. It reports back exclusively
// through ev; cancellation of ctx is the only silent exit.
func runPipeline(ctx context.Context, item MediaItem, opts pipelineOptions, ev pipelineEvents) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URI, nil)
	if err != nil {
		ev.onError(newError(CodeUnspecified, "bad stream url: %v", err))
		return
	}
	req.Header.Set("Icy-MetaData", "1")
	req.Header.Set("User-Agent", "wradio/1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		ev.onError(classifyNetErr(err))
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		ev.onError(newError(CodeNotFound, "stream not found (%d)", resp.StatusCode))
		return
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		ev.onError(newError(CodeBadHTTPStatus, "origin returned %d", resp.StatusCode))
		return
	}

	ctype := strings.ToLower(strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]))
	if unsupportedTypes[ctype] {
		ev.onError(newError(CodeDecodingFormatUnsupported, "unsupported stream format %q", ctype))
		return
	}
	if !validContentType(ctype, resp.Header) {
		ev.onError(newError(CodeInvalidContentType, "not an audio stream: %q", ctype))
		return
	}

	metaint, _ := strconv.Atoi(resp.Header.Get("icy-metaint"))
	kbps := opts.fallbackKbps
	if br, err := strconv.Atoi(resp.Header.Get("icy-br")); err == nil && br > 0 {
		kbps = br
	}
	prebuffer := int64(kbps) * 1000 / 8 * int64(opts.bufferSeconds)

	cmd := exec.CommandContext(ctx, opts.decoder, decoderArgs(opts)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		ev.onError(newError(CodeDecodingFailed, "decoder pipe: %v", err))
		return
	}
	if err := cmd.Start(); err != nil {
		ev.onError(newError(CodeDecodingFailed, "decoder start: %v", err))
		return
	}
	defer func() {
		stdin.Close()
		cmd.Wait()
	}()

	sink := &readySink{w: stdin, threshold: prebuffer, onReady: ev.onReady}
	reader := bufio.NewReaderSize(resp.Body, 32*1024)

	var streamErr error
	if metaint > 0 {
		streamErr = copyWithIcy(reader, sink, metaint, ev.onIcy)
	} else {
		_, streamErr = io.Copy(sink, reader)
	}

	if ctx.Err() != nil {
		return
	}
	switch {
	case streamErr == nil || errors.Is(streamErr, io.EOF) || errors.Is(streamErr, io.ErrUnexpectedEOF):
		ev.onEOF()
	case isWriteSide(streamErr):
		ev.onError(newError(CodeDecodingFailed, "decoder rejected stream: %v", streamErr))
	default:
		ev.onError(classifyNetErr(streamErr))
	}
}

func decoderArgs(opts pipelineOptions) []string {
	lvl := opts.logLevel
	if lvl == "" {
		lvl = "error"
	}
	return []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", lvl,
		"-i", "pipe:0",
	}
}

func validContentType(ctype string, h http.Header) bool {
	if strings.HasPrefix(ctype, "audio/") ||
		ctype == "application/ogg" ||
		ctype == "application/octet-stream" {
		return true
	}
	// Shoutcast v1 answers "ICY 200 OK" with icy-* headers and sometimes no
	// usable content type at all.
	return h.Get("icy-metaint") != "" || h.Get("icy-name") != ""
}

func classifyNetErr(err error) *Error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return newError(CodeNetworkConnectionTimeout, "%v", err)
	}
	return newError(CodeNetworkConnectionFailed, "%v", err)
}

// isWriteSide reports whether the copy failed writing to the decoder rather
// than reading from the network.
func isWriteSide(err error) bool {
	var werr *writeError
	return errors.As(err, &werr)
}

type writeError struct{ err error }

func (w *writeError) Error() string { return w.err.Error() }
func (w *writeError) Unwrap() error { return w.err }

// readySink forwards audio bytes to the decoder and fires onReady once the
// pre-buffer threshold has passed through.
type readySink struct {
	w         io.Writer
	threshold int64
	total     int64
	once      sync.Once
	onReady   func()
}

func (s *readySink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		return n, &writeError{err: err}
	}
	s.total += int64(n)
	if s.total >= s.threshold {
		s.once.Do(s.onReady)
	}
	return n, nil
}

// copyWithIcy splits the stream into metaint-sized audio runs separated by
// length-prefixed metadata blocks (length byte * 16).
func copyWithIcy(r *bufio.Reader, sink io.Writer, metaint int, onIcy func(string)) error {
	for {
		if _, err := io.CopyN(sink, r, int64(metaint)); err != nil {
			return err
		}

		lenByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		size := int(lenByte) * 16
		if size == 0 {
			continue
		}

		block := make([]byte, size)
		if _, err := io.ReadFull(r, block); err != nil {
			return err
		}
		if title := parseStreamTitle(block); title != "" && onIcy != nil {
			onIcy(title)
		}
	}
}

func parseStreamTitle(block []byte) string {
	m := streamTitleRe.FindSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(string(m[1]), "\x00"))
}
