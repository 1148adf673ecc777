package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
)

func makeRequest(httpClient *http.Client, url string, userID string) ([]byte, int, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		log.Println(err)
		return []byte{}, -1, fmt.Errorf("Constructing request: %w", err)
	}

	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Println(err)
		return []byte{}, -1, fmt.Errorf("Making request: %w", err)
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Println(err)
		return []byte{}, -1, fmt.Errorf("ReadAll: %w", err)
	}

	return data, resp.StatusCode, nil
}

func main() {
	baseURL := os.Getenv("MEMOLITH_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	if len(os.Args) < 2 {
		log.Fatal("No number provided")
	}

	rawNumber := os.Args[1]
	number, err := strconv.ParseInt(rawNumber, 10, 64)
	if err != nil {
		log.Fatalf("Invalid number %q: %v", rawNumber, err)
	}

	httpClient := &http.Client{}

	resolveURL := fmt.Sprintf("%s/api/fibonacci?number=%d", baseURL, number)
	data, statusCode, err := makeRequest(httpClient, resolveURL, os.Getenv("MEMOLITH_USER_ID"))
	if err != nil {
		log.Fatalf("Failed making request to memolith: %v", err)
	}

	if statusCode != 200 {
		log.Printf("memolith returned non-200 status code: %d - %s\n", statusCode, string(data))
	}

	fmt.Println(string(data))
	fmt.Println(statusCode)
}
