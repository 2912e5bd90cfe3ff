package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/BertoldVdb/softi2c/ringqueue"
	"github.com/BertoldVdb/softi2c/softi2c"
)

type API struct {
	mux *http.ServeMux
	bus *softi2c.Bus

	logMutex sync.Mutex
	log      *ringqueue.Queue[Entry]
}

// Entry records one transaction served by the API.
type Entry struct {
	Time  time.Time
	Op    string
	Addr  uint8
	Tx    string `json:",omitempty"`
	Rx    string `json:",omitempty"`
	Error string `json:",omitempty"`
}

type Info struct {
	Name string
}

type ScanResult struct {
	Found []int
}

const (
	ctBinary string = "application/octet-stream"
	ctJSON   string = "application/json"
)

// MaxWrite bounds the body of a write request.
const MaxWrite = 4096

const DefaultLogSize = 64

func New(bus *softi2c.Bus, logSize int) (*API, error) {
	if logSize <= 0 {
		logSize = DefaultLogSize
	}

	mux := &http.ServeMux{}

	s := &API{
		mux: mux,
		bus: bus,
		log: ringqueue.New[Entry](logSize),
	}

	infoJson, err := json.MarshalIndent(&Info{Name: bus.String()}, "", "  ")
	if err != nil {
		return nil, err
	}

	mux.HandleFunc("/info", sendStatic(ctJSON, infoJson))
	mux.HandleFunc("/scan", s.scanHandler)
	mux.HandleFunc("/read", s.readHandler)
	mux.HandleFunc("/write", s.writeHandler)
	mux.HandleFunc("/reg", s.regHandler)
	mux.HandleFunc("/log", s.logHandler)

	return s, nil
}

func sendStatic(contentType string, data []byte) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ctJSON)
	w.Write(data)
}

// sendError maps a missing acknowledgment to 502: the request was fine, the
// device on the other side did not answer.
func sendError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, softi2c.ErrNoAck):
		status = http.StatusBadGateway
	case errors.Is(err, softi2c.ErrAddress), errors.Is(err, softi2c.ErrUnsupported):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func (s *API) record(op string, addr uint8, tx []byte, rx []byte, err error) {
	e := Entry{
		Time: time.Now(),
		Op:   op,
		Addr: addr,
		Tx:   hex.EncodeToString(tx),
		Rx:   hex.EncodeToString(rx),
	}
	if err != nil {
		e.Error = err.Error()
	}

	s.logMutex.Lock()
	defer s.logMutex.Unlock()

	if s.log.Full() {
		s.log.Pop()
	}
	s.log.Push(e)
}

func parseByte(r *http.Request, key string, max uint64) (uint8, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, fmt.Errorf("missing parameter %q", key)
	}

	n, err := strconv.ParseUint(v, 0, 8)
	if err != nil || n > max {
		return 0, fmt.Errorf("invalid parameter %q: %q", key, v)
	}
	return uint8(n), nil
}

func parseAddr(r *http.Request) (uint8, error) {
	return parseByte(r, "addr", 0x7f)
}

func (s *API) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	var found []uint8
	err := s.bus.Do(func(m *softi2c.Master) error {
		var err error
		found, err = m.Scan()
		return err
	})
	s.record("Scan", 0, nil, found, err)

	if err != nil {
		sendError(w, err)
		return
	}

	result := ScanResult{Found: make([]int, 0, len(found))}
	for _, addr := range found {
		result.Found = append(result.Found, int(addr))
	}
	sendJSON(w, &result)
}

func (s *API) readHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	addr, err := parseAddr(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var v byte
	err = s.bus.Do(func(m *softi2c.Master) error {
		var err error
		v, err = m.ReadByte(addr)
		return err
	})
	s.record("ReadByte", addr, nil, []byte{v}, err)

	if err != nil {
		sendError(w, err)
		return
	}

	w.Header().Set("Content-Type", ctBinary)
	w.Write([]byte{v})
}

func (s *API) writeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	addr, err := parseAddr(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxWrite+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) > MaxWrite {
		http.Error(w, "Body too large", http.StatusRequestEntityTooLarge)
		return
	}

	err = s.bus.Do(func(m *softi2c.Master) error {
		if len(data) == 1 {
			return m.WriteByte(addr, data[0])
		}
		return m.WriteMultiBytes(addr, data)
	})
	s.record("Write", addr, data, nil, err)

	if err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *API) regHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" && r.Method != "POST" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	addr, err := parseAddr(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reg, err := parseByte(r, "reg", 0xff)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.Method == "POST" {
		value, err := parseByte(r, "value", 0xff)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = s.bus.Do(func(m *softi2c.Master) error {
			return m.WriteReg(addr, reg, value)
		})
		s.record("WriteReg", addr, []byte{reg, value}, nil, err)

		if err != nil {
			sendError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var v byte
	err = s.bus.Do(func(m *softi2c.Master) error {
		var err error
		v, err = m.ReadReg(addr, reg)
		return err
	})
	s.record("ReadReg", addr, []byte{reg}, []byte{v}, err)

	if err != nil {
		sendError(w, err)
		return
	}

	w.Header().Set("Content-Type", ctBinary)
	w.Write([]byte{v})
}

func (s *API) logHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	s.logMutex.Lock()
	entries := s.log.Items()
	s.logMutex.Unlock()

	sendJSON(w, entries)
}

// Log returns the recorded transactions, oldest first.
func (s *API) Log() []Entry {
	s.logMutex.Lock()
	defer s.logMutex.Unlock()

	return s.log.Items()
}

func (s *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
