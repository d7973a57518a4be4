package models

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/teambition/rrule-go"
)

// utf8BOM makes spreadsheet tools detect the encoding correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{
	"Data", "Dia", "Etapa do Funil", "Título", "Conteúdo", "Sugestão Visual", "Hashtags",
}

// ExportCSV writes the posting agenda of the item as a CSV document:
// UTF-8 with byte-order marker, comma-delimited, RFC 4180 quoting. Each
// agenda day is mapped to a concrete calendar date by a daily recurrence
// anchored at the item's creation date.
func (c ContentItem) ExportCSV(w io.Writer) error {
	payload, err := c.ParsePayload()
	if err != nil {
		return err
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	maxDia := 0
	for _, post := range payload.AgendaDePostagens {
		if post.Dia > maxDia {
			maxDia = post.Dia
		}
	}

	var dates []string
	if maxDia > 0 {
		rule, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.DAILY,
			Count:   maxDia,
			Dtstart: c.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("falha ao montar a recorrência da agenda: %w", err)
		}
		for _, occ := range rule.All() {
			dates = append(dates, occ.Format("02/01/2006"))
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, post := range payload.AgendaDePostagens {
		date := ""
		if post.Dia >= 1 && post.Dia <= len(dates) {
			date = dates[post.Dia-1]
		}
		record := []string{
			date,
			fmt.Sprintf("%d", post.Dia),
			post.EtapaFunil,
			post.Titulo,
			post.Conteudo,
			post.SugestaoVisual,
			strings.Join(post.Hashtags, " "),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
