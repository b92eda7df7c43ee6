package unstructured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"docqa/src/core/docqa"
	"docqa/src/log"
)

// UnstructuredService decodes documents through the Unstructured API.
type UnstructuredService struct {
	baseURL    string
	strategy   string
	httpClient *http.Client
}

type UnstructuredElement struct {
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	ElementID string   `json:"element_id"`
	Metadata  Metadata `json:"metadata"`
}

type Metadata struct {
	Filename   string `json:"filename,omitempty"`
	Filetype   string `json:"filetype,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

var _ docqa.Decoder = (*UnstructuredService)(nil)

func NewUnstructuredService(baseURL string, httpClient *http.Client) *UnstructuredService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &UnstructuredService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		strategy:   "fast",
		httpClient: httpClient,
	}
}

// Decode sends the document to the partition endpoint and joins element
// texts per page. Elements without a page number belong to page 1.
func (s *UnstructuredService) Decode(ctx context.Context, name string, data []byte) ([]docqa.Page, error) {
	elements, err := s.Partition(ctx, name, data)
	if err != nil {
		return nil, err
	}
	return PagesFromElements(elements), nil
}

func (s *UnstructuredService) Partition(ctx context.Context, filename string, content []byte) ([]UnstructuredElement, error) {
	var requestBody bytes.Buffer
	multipartWriter := multipart.NewWriter(&requestBody)

	fileWriter, err := multipartWriter.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(fileWriter, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := multipartWriter.WriteField("strategy", s.strategy); err != nil {
		return nil, fmt.Errorf("failed to write strategy: %w", err)
	}
	if err := multipartWriter.WriteField("output_format", "application/json"); err != nil {
		return nil, fmt.Errorf("failed to write output format: %w", err)
	}
	multipartWriter.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/general/v0/general", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", multipartWriter.FormDataContentType())

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to reach conversion service: %w", docqa.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error(fmt.Errorf("conversion service error: %s", resp.Status), "failed to convert document",
			"filename", filename, "response", string(body))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: conversion service error: %s", docqa.ErrBackendUnavailable, resp.Status)
		}
		return nil, fmt.Errorf("%w: conversion service rejected %s: %s", docqa.ErrDecode, filename, resp.Status)
	}

	var elements []UnstructuredElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return elements, nil
}

// PagesFromElements groups element texts by page number, in page order.
func PagesFromElements(elements []UnstructuredElement) []docqa.Page {
	byPage := make(map[int][]string)
	for _, el := range elements {
		if strings.TrimSpace(el.Text) == "" {
			continue
		}
		n := el.Metadata.PageNumber
		if n <= 0 {
			n = 1
		}
		byPage[n] = append(byPage[n], el.Text)
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]docqa.Page, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, docqa.Page{Number: n, Text: strings.Join(byPage[n], "\n\n")})
	}
	return pages
}
