package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Claim is everything a holder needs to claim against a committed root.
type Claim struct {
	Holder string            `json:"holder"`
	Token  string            `json:"token"`
	Amount string            `json:"amount"`
	Labels map[string]string `json:"labels"`
	Proof  []string          `json:"proof"`
	Root   string            `json:"root"`
}

// ClaimFor assembles holder's claim from the ledger and its tree.
func ClaimFor(l Ledger, t *Tree, holder common.Address) (Claim, error) {
	amount, ok := t.Amount(holder)
	if !ok {
		return Claim{}, fmt.Errorf("holder %s not in tree", holder.Hex())
	}
	proof, err := t.Proof(holder)
	if err != nil {
		return Claim{}, err
	}

	labels := make(map[string]string, len(l[holder]))
	for label, v := range l[holder] {
		labels[label] = v.Dec()
	}
	hexProof := make([]string, 0, len(proof))
	for _, p := range proof {
		hexProof = append(hexProof, p.Hex())
	}
	return Claim{
		Holder: holder.Hex(),
		Token:  t.Token().Hex(),
		Amount: amount.Dec(),
		Labels: labels,
		Proof:  hexProof,
		Root:   t.Root().Hex(),
	}, nil
}
