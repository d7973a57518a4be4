package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DeliveryStatus is the content API's word on whether an item's
// generated payload is ready.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDENTE"
	DeliveryStatusDelivered DeliveryStatus = "ENTREGUE"
)

// ContentPlan is the purchased plan an item was generated under.
type ContentPlan struct {
	Nome string `json:"nome"`
	Dias int    `json:"dias"`
}

// ContentItem is one generated content agenda as the content API
// returns it. ConteudoGerado holds the generated payload as a raw JSON
// string; it is only parsed when a delivered item is actually rendered
// or exported.
type ContentItem struct {
	ID             uint           `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	ConteudoGerado string         `json:"conteudo_gerado"`
	CompraID       *uint          `json:"compra_id"`
	StatusEntrega  DeliveryStatus `json:"status_entrega"`
	Plano          *ContentPlan   `json:"plano,omitempty"`
}

// Delivered reports whether the item's payload is ready. Older records
// carry no status at all; those predate generation tracking and are
// always complete.
func (c ContentItem) Delivered() bool {
	return c.StatusEntrega != DeliveryStatusPending
}

// FreeTier reports whether the item was generated under the free tier,
// with no purchase attached.
func (c ContentItem) FreeTier() bool {
	return c.CompraID == nil
}

// StrategyAnalysis is the strategy section of a generated payload.
type StrategyAnalysis struct {
	TituloEstrategia string `json:"tituloEstrategia"`
	Justificativa    string `json:"justificativa"`
}

// AgendaPost is one day's post in the generated agenda.
type AgendaPost struct {
	Dia            int      `json:"dia"`
	EtapaFunil     string   `json:"etapaFunil"`
	Titulo         string   `json:"titulo"`
	Conteudo       string   `json:"conteudo"`
	SugestaoVisual string   `json:"sugestaoVisual"`
	Hashtags       []string `json:"hashtags"`
}

// GeneratedPayload is the parsed form of ConteudoGerado.
type GeneratedPayload struct {
	AnaliseEstrategica StrategyAnalysis `json:"analiseEstrategica"`
	AgendaDePostagens  []AgendaPost     `json:"agendaDePostagens"`
}

// MalformedContentError marks an item whose stored payload does not
// parse. The failure stays scoped to that one item; the surrounding
// list is unaffected.
type MalformedContentError struct {
	ContentID uint
	Err       error
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("conteúdo %d com dados ilegíveis: %v", e.ContentID, e.Err)
}

func (e *MalformedContentError) Unwrap() error {
	return e.Err
}

// ParsePayload decodes the generated payload of the item.
func (c ContentItem) ParsePayload() (*GeneratedPayload, error) {
	var payload GeneratedPayload
	if err := json.Unmarshal([]byte(c.ConteudoGerado), &payload); err != nil {
		return nil, &MalformedContentError{ContentID: c.ID, Err: err}
	}
	return &payload, nil
}
