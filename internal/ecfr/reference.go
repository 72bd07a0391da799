package ecfr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/roach88/cfrstat/internal/cfr"
)

type agenciesDocument struct {
	Agencies []cfr.Agency `json:"agencies"`
}

type titlesDocument struct {
	Titles []cfr.Title `json:"titles"`
}

// FetchAgencies downloads the agency tree from admin/v1/agencies.json.
func (c *Client) FetchAgencies(ctx context.Context) ([]cfr.Agency, error) {
	body, err := c.get(ctx, c.baseURL+"/admin/v1/agencies.json")
	if err != nil {
		return nil, fmt.Errorf("fetch agencies: %w", err)
	}
	defer body.Close()
	return decodeAgencies(body)
}

// FetchTitles downloads title metadata from versioner/v1/titles.json.
func (c *Client) FetchTitles(ctx context.Context) ([]cfr.Title, error) {
	body, err := c.get(ctx, c.baseURL+"/versioner/v1/titles.json")
	if err != nil {
		return nil, fmt.Errorf("fetch titles: %w", err)
	}
	defer body.Close()
	return decodeTitles(body)
}

// LoadAgenciesFile reads an agencies.json saved on disk.
func LoadAgenciesFile(path string) ([]cfr.Agency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open agencies file: %w", err)
	}
	defer f.Close()
	return decodeAgencies(f)
}

// LoadTitlesFile reads a titles.json saved on disk.
func LoadTitlesFile(path string) ([]cfr.Title, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open titles file: %w", err)
	}
	defer f.Close()
	return decodeTitles(f)
}

func decodeAgencies(r io.Reader) ([]cfr.Agency, error) {
	var doc agenciesDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode agencies: %w", err)
	}
	return doc.Agencies, nil
}

func decodeTitles(r io.Reader) ([]cfr.Title, error) {
	var doc titlesDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode titles: %w", err)
	}
	return doc.Titles, nil
}
