package submitter

import (
	"encoding/json"
	"fmt"

	"github.com/paw-chain/oracle-feeder/pkg/neorpc"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// InvocationPayload carries the four parallel arrays of one UpdatePriceBatch
// call. Index i across all four arrays describes one symbol.
type InvocationPayload struct {
	Symbols     []string `json:"symbols"`
	Prices      []string `json:"prices"` // scaled big integers, decimal strings
	Timestamps  []int64  `json:"timestamps"`
	Confidences []int    `json:"confidences"`
}

// BuildPayload converts a batch into the invocation arrays.
func BuildPayload(batch types.PriceBatch) InvocationPayload {
	p := InvocationPayload{
		Symbols:     make([]string, 0, len(batch.Prices)),
		Prices:      make([]string, 0, len(batch.Prices)),
		Timestamps:  make([]int64, 0, len(batch.Prices)),
		Confidences: make([]int, 0, len(batch.Prices)),
	}
	for _, price := range batch.Prices {
		p.Symbols = append(p.Symbols, price.Symbol)
		p.Prices = append(p.Prices, price.ScaledPrice().String())
		p.Timestamps = append(p.Timestamps, price.Timestamp.Unix())
		p.Confidences = append(p.Confidences, price.Confidence)
	}
	return p
}

// ContractParameters renders the payload as invokefunction arguments: four
// arrays in the fixed symbols, prices, timestamps, confidences order.
func (p InvocationPayload) ContractParameters() []neorpc.ContractParameter {
	symbols := make([]neorpc.ContractParameter, len(p.Symbols))
	prices := make([]neorpc.ContractParameter, len(p.Prices))
	timestamps := make([]neorpc.ContractParameter, len(p.Timestamps))
	confidences := make([]neorpc.ContractParameter, len(p.Confidences))
	for i := range p.Symbols {
		symbols[i] = neorpc.ContractParameter{Type: "String", Value: p.Symbols[i]}
		prices[i] = neorpc.ContractParameter{Type: "Integer", Value: p.Prices[i]}
		timestamps[i] = neorpc.ContractParameter{Type: "Integer", Value: fmt.Sprintf("%d", p.Timestamps[i])}
		confidences[i] = neorpc.ContractParameter{Type: "Integer", Value: fmt.Sprintf("%d", p.Confidences[i])}
	}
	return []neorpc.ContractParameter{
		{Type: "Array", Value: symbols},
		{Type: "Array", Value: prices},
		{Type: "Array", Value: timestamps},
		{Type: "Array", Value: confidences},
	}
}

// SigningMessage is the canonical byte form both witnesses sign: the batch
// id, target contract and the four arrays, JSON-encoded with sorted keys.
func (p InvocationPayload) SigningMessage(batchID, contractHash string) ([]byte, error) {
	envelope := struct {
		BatchID  string            `json:"batchId"`
		Contract string            `json:"contract"`
		Payload  InvocationPayload `json:"payload"`
	}{
		BatchID:  batchID,
		Contract: contractHash,
		Payload:  p,
	}
	return json.Marshal(envelope)
}
