// Package redisstub runs a minimal in-process Redis protocol server for
// tests. It speaks just enough RESP2 for the session store and the login
// rate limiter: string keys with optional expiry plus counters.
package redisstub

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Options struct {
	Password string
}

type Server struct {
	opts     Options
	listener net.Listener
	addr     string
	mu       sync.Mutex
	kv       map[string]*kvEntry
	closed   chan struct{}
}

type kvEntry struct {
	value  string
	expiry time.Time
}

func Start(opts Options) (*Server, error) {
	server := &Server{
		opts:   opts,
		kv:     make(map[string]*kvEntry),
		closed: make(chan struct{}),
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	server.listener = ln
	server.addr = ln.Addr().String()
	go server.serve()
	return server, nil
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Close() error {
	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		return nil
	default:
	}
	close(s.closed)
	s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	return nil
}

// Value returns the stored string for key, honouring expiry.
func (s *Server) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveEntry(key)
	if !ok {
		return "", false
	}
	return entry.value, true
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	authenticated := s.opts.Password == ""
	for {
		args, err := readArray(reader)
		if err != nil {
			return
		}
		if len(args) == 0 {
			if writeError(writer, "ERR wrong number of arguments") != nil {
				return
			}
			continue
		}
		cmd := strings.ToUpper(args[0])
		var werr error
		switch cmd {
		case "PING":
			werr = writeSimpleString(writer, "PONG")
		case "HELLO":
			// RESP3 negotiation is not supported; clients fall back
			// to RESP2 when this errors.
			werr = writeError(writer, "ERR unknown command 'hello'")
		case "CLIENT":
			werr = writeSimpleString(writer, "OK")
		case "SELECT":
			werr = writeSimpleString(writer, "OK")
		case "AUTH":
			password := ""
			switch len(args) {
			case 2:
				password = args[1]
			case 3:
				password = args[2]
			default:
				werr = writeError(writer, "ERR wrong number of arguments for 'auth'")
			}
			if werr == nil {
				if s.opts.Password == "" || password == s.opts.Password {
					authenticated = true
					werr = writeSimpleString(writer, "OK")
				} else {
					werr = writeError(writer, "WRONGPASS invalid username-password pair")
				}
			}
		default:
			if !authenticated {
				werr = writeError(writer, "NOAUTH Authentication required.")
			} else {
				werr = s.dispatch(writer, cmd, args)
			}
		}
		if werr != nil {
			return
		}
	}
}

func (s *Server) dispatch(writer *bufio.Writer, cmd string, args []string) error {
	switch cmd {
	case "SET":
		if len(args) < 3 {
			return writeError(writer, "ERR wrong number of arguments for 'set'")
		}
		ttl, err := parseSetExpiry(args[3:])
		if err != nil {
			return writeError(writer, err.Error())
		}
		s.set(args[1], args[2], ttl)
		return writeSimpleString(writer, "OK")
	case "GET":
		if len(args) != 2 {
			return writeError(writer, "ERR wrong number of arguments for 'get'")
		}
		value, ok := s.get(args[1])
		if !ok {
			return writeNullBulk(writer)
		}
		return writeBulkString(writer, value)
	case "DEL":
		if len(args) < 2 {
			return writeError(writer, "ERR wrong number of arguments for 'del'")
		}
		return writeInteger(writer, s.del(args[1:]))
	case "INCR":
		if len(args) != 2 {
			return writeError(writer, "ERR wrong number of arguments for 'incr'")
		}
		value, err := s.incr(args[1])
		if err != nil {
			return writeError(writer, err.Error())
		}
		return writeInteger(writer, value)
	case "EXPIRE":
		if len(args) != 3 {
			return writeError(writer, "ERR wrong number of arguments for 'expire'")
		}
		seconds, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return writeError(writer, "ERR invalid expire time")
		}
		return writeInteger(writer, s.expire(args[1], time.Duration(seconds)*time.Second))
	case "TTL":
		if len(args) != 2 {
			return writeError(writer, "ERR wrong number of arguments for 'ttl'")
		}
		return writeInteger(writer, s.ttl(args[1]))
	default:
		return writeError(writer, "ERR unsupported command '"+cmd+"'")
	}
}

func parseSetExpiry(opts []string) (time.Duration, error) {
	for i := 0; i < len(opts); i++ {
		switch strings.ToUpper(opts[i]) {
		case "EX", "PX":
			if i+1 >= len(opts) {
				return 0, fmt.Errorf("ERR syntax error")
			}
			value, err := strconv.ParseInt(opts[i+1], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("ERR invalid expire time in 'set'")
			}
			if strings.ToUpper(opts[i]) == "EX" {
				return time.Duration(value) * time.Second, nil
			}
			return time.Duration(value) * time.Millisecond, nil
		}
	}
	return 0, nil
}

func (s *Server) liveEntry(key string) (*kvEntry, bool) {
	entry, ok := s.kv[key]
	if !ok {
		return nil, false
	}
	if !entry.expiry.IsZero() && time.Now().After(entry.expiry) {
		delete(s.kv, key)
		return nil, false
	}
	return entry, true
}

func (s *Server) set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &kvEntry{value: value}
	if ttl > 0 {
		entry.expiry = time.Now().Add(ttl)
	}
	s.kv[key] = entry
}

func (s *Server) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveEntry(key)
	if !ok {
		return "", false
	}
	return entry.value, true
}

func (s *Server) del(keys []string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := s.liveEntry(key); ok {
			delete(s.kv, key)
			removed++
		}
	}
	return removed
}

func (s *Server) incr(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveEntry(key)
	if !ok {
		entry = &kvEntry{value: "0"}
		s.kv[key] = entry
	}
	value, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ERR value is not an integer or out of range")
	}
	value++
	entry.value = strconv.FormatInt(value, 10)
	return value, nil
}

func (s *Server) expire(key string, ttl time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveEntry(key)
	if !ok {
		return 0
	}
	entry.expiry = time.Now().Add(ttl)
	return 1
}

func (s *Server) ttl(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveEntry(key)
	if !ok {
		return -2
	}
	if entry.expiry.IsZero() {
		return -1
	}
	remaining := time.Until(entry.expiry)
	if remaining <= 0 {
		return -2
	}
	seconds := int64(remaining / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	return seconds
}

func readArray(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '*' {
		return nil, fmt.Errorf("expected array, got %q", line)
	}
	count, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, count)
	for i := 0; i < count; i++ {
		bulkHeader, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if len(bulkHeader) == 0 || bulkHeader[0] != '$' {
			return nil, fmt.Errorf("expected bulk string, got %q", bulkHeader)
		}
		length, err := strconv.Atoi(bulkHeader[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, length+2)
		if _, err := ioReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:length]))
	}
	return args, nil
}

func ioReadFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

func writeSimpleString(w *bufio.Writer, value string) error {
	if _, err := fmt.Fprintf(w, "+%s\r\n", value); err != nil {
		return err
	}
	return w.Flush()
}

func writeError(w *bufio.Writer, message string) error {
	if _, err := fmt.Fprintf(w, "-%s\r\n", message); err != nil {
		return err
	}
	return w.Flush()
}

func writeInteger(w *bufio.Writer, value int64) error {
	if _, err := fmt.Fprintf(w, ":%d\r\n", value); err != nil {
		return err
	}
	return w.Flush()
}

func writeBulkString(w *bufio.Writer, value string) error {
	if _, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(value), value); err != nil {
		return err
	}
	return w.Flush()
}

func writeNullBulk(w *bufio.Writer) error {
	if _, err := w.WriteString("$-1\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
