// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/holiman/uint256"
)

// validate holds the settings and caches for validating the genesis file.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time         `json:"date" validate:"required"`
	ChainID         uint16            `json:"chain_id"`                                       // The chain id represents an unique id for this running instance.
	TransPerBlock   uint16            `json:"trans_per_block" validate:"gt=0"`                // The maximum number of transactions that can be in a block.
	Difficulty      uint64            `json:"difficulty" validate:"gt=0"`                     // The leading 8 bytes of a block hash must be below this value.
	MiningReward    uint64            `json:"mining_reward"`                                  // Reward for mining a block.
	MinFee          uint64            `json:"min_fee"`                                        // Minimum gas price accepted into the mempool.
	MempoolCapacity int               `json:"mempool_capacity" validate:"gte=0"`              // Maximum number of pending transactions.
	Balances        map[string]uint64 `json:"balances" validate:"dive,keys,eth_addr,endkeys"` // Initial balances keyed by address.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("unmarshal genesis: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values are usable for starting a chain.
func (g Genesis) Validate() error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("validate genesis: %w", err)
	}
	return nil
}

// Accounts converts the initial balances into ledger form.
func (g Genesis) Accounts() map[common.Address]*uint256.Int {
	balances := make(map[common.Address]*uint256.Int, len(g.Balances))
	for address, balance := range g.Balances {
		balances[common.HexToAddress(address)] = uint256.NewInt(balance)
	}

	return balances
}

// Reward returns the mining reward as a 256 bit value.
func (g Genesis) Reward() *uint256.Int {
	return uint256.NewInt(g.MiningReward)
}

// Fee returns the minimum fee as a 256 bit value.
func (g Genesis) Fee() *uint256.Int {
	return uint256.NewInt(g.MinFee)
}
