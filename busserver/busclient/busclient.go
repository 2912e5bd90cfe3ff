// Package busclient talks to a busserver. Client offers the same five
// transactions as a local master, so drivers can run against a remote bus.
package busclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BertoldVdb/softi2c/busserver/api"
	"github.com/BertoldVdb/softi2c/softi2c"
)

type Client struct {
	client http.Client
	url    string

	user, pass string

	info api.Info
}

type Option func(c *Client)

// WithAuth sets the basic auth credentials sent with every request.
func WithAuth(user, pass string) Option {
	return func(c *Client) {
		c.user, c.pass = user, pass
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

func New(url string, opts ...Option) (*Client, error) {
	c := &Client{
		client: http.Client{
			Timeout: 10 * time.Second,
		},

		url: strings.TrimSuffix(url, "/"),
	}

	for _, opt := range opts {
		opt(c)
	}

	infoRaw, err := c.doReq("GET", "info", nil, nil)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(infoRaw, &c.info); err != nil {
		return nil, err
	}

	return c, nil
}

func byteArg(v uint8) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}

func (c *Client) doReq(method string, endpoint string, query url.Values, body []byte) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewBuffer(body)
	}

	u := c.url + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, u, rdr)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 65536))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusBadGateway:
		return nil, fmt.Errorf("%s: %w", strings.TrimSpace(string(data)), softi2c.ErrNoAck)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("request error %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	return data, nil
}

func checkAddr(addr uint8) error {
	if addr > 0x7f {
		return fmt.Errorf("address 0x%02x: %w", addr, softi2c.ErrAddress)
	}
	return nil
}

func (c *Client) readOne(endpoint string, query url.Values) (byte, error) {
	data, err := c.doReq("GET", endpoint, query, nil)
	if err != nil {
		return 0, err
	}
	if len(data) != 1 {
		return 0, fmt.Errorf("expected 1 byte, got %d", len(data))
	}
	return data[0], nil
}

func (c *Client) WriteByte(addr uint8, data byte) error {
	return c.WriteMultiBytes(addr, []byte{data})
}

func (c *Client) WriteMultiBytes(addr uint8, data []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	_, err := c.doReq("POST", "write", url.Values{"addr": {byteArg(addr)}}, data)
	return err
}

func (c *Client) WriteReg(addr uint8, reg uint8, data byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}

	_, err := c.doReq("POST", "reg", url.Values{
		"addr":  {byteArg(addr)},
		"reg":   {byteArg(reg)},
		"value": {byteArg(data)},
	}, nil)
	return err
}

func (c *Client) ReadByte(addr uint8) (byte, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return c.readOne("read", url.Values{"addr": {byteArg(addr)}})
}

func (c *Client) ReadReg(addr uint8, reg uint8) (byte, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return c.readOne("reg", url.Values{
		"addr": {byteArg(addr)},
		"reg":  {byteArg(reg)},
	})
}

func (c *Client) Scan() ([]uint8, error) {
	data, err := c.doReq("GET", "scan", nil, nil)
	if err != nil {
		return nil, err
	}

	var result api.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	found := make([]uint8, 0, len(result.Found))
	for _, addr := range result.Found {
		found = append(found, uint8(addr))
	}
	return found, nil
}

// Log fetches the server's record of recent transactions.
func (c *Client) Log() ([]api.Entry, error) {
	data, err := c.doReq("GET", "log", nil, nil)
	if err != nil {
		return nil, err
	}

	var entries []api.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Name() string {
	return c.info.Name
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
