package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Serialize encodes a Network to bytes using gob encoding.
// This is useful for disk-based caching to avoid re-parsing GTFS and regenerating
// transfers on every start.
//
// Thread safety: Safe for concurrent use once the network is fully built.
func Serialize(n *Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeToWriter(n, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a Network from bytes using gob encoding and rebuilds its
// lookup tables.
//
// Example:
//
//	data, _ := os.ReadFile("/path/to/cache/network.gob")
//	net, err := network.Deserialize(data)
//	if err != nil {
//	    // Cache is corrupted or invalid, load the feed again
//	    net, _ = network.LoadGTFS("gtfs.zip", opts)
//	}
func Deserialize(data []byte) (*Network, error) {
	return DeserializeFromReader(bytes.NewReader(data))
}

// SerializeToFile writes a Network to a file using gob encoding.
func SerializeToFile(n *Network, filepath string) error {
	data, err := Serialize(n)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, data, 0644)
}

// DeserializeFromFile reads a Network from a file using gob encoding.
func DeserializeFromFile(filepath string) (*Network, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return Deserialize(data)
}

// SerializeToWriter writes a Network to an io.Writer using gob encoding.
func SerializeToWriter(n *Network, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(n); err != nil {
		return fmt.Errorf("failed to encode Network: %w", err)
	}
	return nil
}

// DeserializeFromReader reads a Network from an io.Reader using gob encoding.
func DeserializeFromReader(r io.Reader) (*Network, error) {
	var n Network
	if err := gob.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("failed to decode Network: %w", err)
	}
	if err := n.reindex(); err != nil {
		return nil, err
	}
	return &n, nil
}
