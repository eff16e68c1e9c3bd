package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/scrapekit/go-scrape-reviews/models"
)

var reviewColumns = []string{"entry", "title", "year", "pros"}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.csv")

	writer, err := NewCSVWriter(path, reviewColumns)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}

	records := []models.Record{
		{"entry": "Acme", "title": "Great role", "year": 2023, "pros": "good pay"},
		{"entry": "Acme", "title": "Bad role", "year": 2021, "pros": ""},
	}
	if err := writer.Write(records); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want header plus 2", len(rows))
	}
	if !reflect.DeepEqual(rows[0], reviewColumns) {
		t.Fatalf("header = %v, want %v", rows[0], reviewColumns)
	}
	if !reflect.DeepEqual(rows[1], []string{"Acme", "Great role", "2023", "good pay"}) {
		t.Fatalf("first row = %v", rows[1])
	}
}

func TestCSVWriterMissingColumnIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.csv")

	writer, err := NewCSVWriter(path, reviewColumns)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := writer.Write([]models.Record{{"entry": "Acme"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !reflect.DeepEqual(rows[1], []string{"Acme", "", "", ""}) {
		t.Fatalf("row = %v, want empty cells for missing columns", rows[1])
	}
}

func TestCSVWriterRequiresColumns(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewCSVWriter(filepath.Join(dir, "reviews.csv"), nil); err == nil {
		t.Fatal("expected error for empty column set")
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}

	records := []models.Record{
		{"entry": "Acme", "title": "Great role", "year": 2023},
	}
	if err := writer.Write(records); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected one json line")
	}
	var decoded map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded["entry"] != "Acme" || decoded["title"] != "Great role" {
		t.Fatalf("decoded record = %v", decoded)
	}
	// JSON numbers decode as float64.
	if decoded["year"] != float64(2023) {
		t.Fatalf("year = %v, want 2023", decoded["year"])
	}
	if scanner.Scan() {
		t.Fatal("expected exactly one json line")
	}
}

func TestDualWriterWritesBothFormats(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "reviews.csv")
	jsonPath := filepath.Join(dir, "reviews.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath, reviewColumns)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}

	records := []models.Record{
		{"entry": "Acme", "title": "Great role", "year": 2023, "pros": "good pay"},
	}
	if err := writer.Write(records); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}
