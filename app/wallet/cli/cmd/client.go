package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// errNotFound is returned when the node has no record of the value.
var errNotFound = errors.New("not found")

var client = http.Client{
	Timeout: 10 * time.Second,
}

// get performs a GET against the node and decodes the JSON response.
func get(url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

// post sends the value as JSON to the node and decodes the JSON response.
func post(url string, in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound

	case resp.StatusCode != http.StatusOK:
		var er struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, er.Error)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
