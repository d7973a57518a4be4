package models

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func exportItem(t *testing.T, posts []AgendaPost) ContentItem {
	t.Helper()
	payload, err := json.Marshal(GeneratedPayload{
		AnaliseEstrategica: StrategyAnalysis{TituloEstrategia: "Teste", Justificativa: "Porque sim"},
		AgendaDePostagens:  posts,
	})
	if err != nil {
		t.Fatal(err)
	}
	return ContentItem{
		ID:             1,
		CreatedAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		ConteudoGerado: string(payload),
	}
}

func TestExportCSVStartsWithBOM(t *testing.T) {
	item := exportItem(t, []AgendaPost{{Dia: 1, Titulo: "Post"}})

	var buf bytes.Buffer
	if err := item.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV() returned error: %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("exported CSV does not start with UTF-8 BOM")
	}
}

func TestExportCSVQuoting(t *testing.T) {
	item := exportItem(t, []AgendaPost{
		{Dia: 1, EtapaFunil: "Topo", Titulo: "Launch, Day 1", Conteudo: "linha um\nlinha dois"},
		{Dia: 2, EtapaFunil: "Meio", Titulo: `Cite "algo" aqui`, Conteudo: "simples"},
	})

	var buf bytes.Buffer
	if err := item.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV() returned error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, `"Launch, Day 1"`) {
		t.Error("field with comma was not quoted")
	}
	if !strings.Contains(out, `"Cite ""algo"" aqui"`) {
		t.Error("embedded quotes were not doubled")
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	posts := []AgendaPost{
		{Dia: 1, EtapaFunil: "Topo", Titulo: "Launch, Day 1", Conteudo: "a\nb", SugestaoVisual: `foto "close"`, Hashtags: []string{"#x", "#y"}},
		{Dia: 2, EtapaFunil: "Fundo", Titulo: "Plain", Conteudo: "c", SugestaoVisual: "v", Hashtags: nil},
	}
	item := exportItem(t, posts)

	var buf bytes.Buffer
	if err := item.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV() returned error: %v", err)
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF})))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("re-parsing exported CSV failed: %v", err)
	}
	if len(records) != len(posts)+1 {
		t.Fatalf("got %d records; want %d", len(records), len(posts)+1)
	}

	for i, post := range posts {
		row := records[i+1]
		if row[3] != post.Titulo {
			t.Errorf("row %d título = %q; want %q", i, row[3], post.Titulo)
		}
		if row[4] != post.Conteudo {
			t.Errorf("row %d conteúdo = %q; want %q", i, row[4], post.Conteudo)
		}
		if row[5] != post.SugestaoVisual {
			t.Errorf("row %d visual = %q; want %q", i, row[5], post.SugestaoVisual)
		}
	}
}

func TestExportCSVScheduledDates(t *testing.T) {
	item := exportItem(t, []AgendaPost{
		{Dia: 1, Titulo: "Primeiro"},
		{Dia: 3, Titulo: "Terceiro"},
	})

	var buf bytes.Buffer
	if err := item.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV() returned error: %v", err)
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF})))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// Day 1 falls on the creation date, day 3 two days later.
	if records[1][0] != "10/03/2026" {
		t.Errorf("day 1 date = %q; want 10/03/2026", records[1][0])
	}
	if records[2][0] != "12/03/2026" {
		t.Errorf("day 3 date = %q; want 12/03/2026", records[2][0])
	}
}

func TestExportCSVMalformedPayload(t *testing.T) {
	item := ContentItem{ID: 5, ConteudoGerado: "{{"}

	var buf bytes.Buffer
	if err := item.ExportCSV(&buf); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written when the payload cannot be parsed")
	}
}
