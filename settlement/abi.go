package settlement

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// The push-split factory and wallet interfaces are fixed by the external
// contracts; field names and ordering must match exactly for calldata and
// event decoding to be valid.
const splitFactoryJSON = `[
  {
    "type": "function",
    "name": "createSplit",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "_splitParams",
        "type": "tuple",
        "components": [
          {"name": "recipients", "type": "address[]"},
          {"name": "allocations", "type": "uint256[]"},
          {"name": "totalAllocation", "type": "uint256"},
          {"name": "distributionIncentive", "type": "uint16"}
        ]
      },
      {"name": "_owner", "type": "address"},
      {"name": "_creator", "type": "address"}
    ],
    "outputs": [{"name": "split", "type": "address"}]
  },
  {
    "type": "event",
    "name": "SplitCreated",
    "inputs": [
      {"name": "split", "type": "address", "indexed": true},
      {
        "name": "splitParams",
        "type": "tuple",
        "indexed": false,
        "components": [
          {"name": "recipients", "type": "address[]"},
          {"name": "allocations", "type": "uint256[]"},
          {"name": "totalAllocation", "type": "uint256"},
          {"name": "distributionIncentive", "type": "uint16"}
        ]
      },
      {"name": "owner", "type": "address", "indexed": false},
      {"name": "creator", "type": "address", "indexed": false}
    ]
  }
]`

const splitWalletJSON = `[
  {
    "type": "function",
    "name": "distribute",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "_split",
        "type": "tuple",
        "components": [
          {"name": "recipients", "type": "address[]"},
          {"name": "allocations", "type": "uint256[]"},
          {"name": "totalAllocation", "type": "uint256"},
          {"name": "distributionIncentive", "type": "uint16"}
        ]
      },
      {"name": "_token", "type": "address"},
      {"name": "_distributor", "type": "address"}
    ],
    "outputs": []
  }
]`

var (
	splitFactoryABI   = mustABI(splitFactoryJSON)
	splitWalletABI    = mustABI(splitWalletJSON)
	splitCreatedTopic = splitFactoryABI.Events["SplitCreated"].ID
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// SplitParams mirrors the contract's Split struct. Recipients are sorted
// ascending by address; the contract derives deterministic addressing from
// that ordering, so it is part of the validated interface, not a style
// choice.
type SplitParams struct {
	Recipients            []common.Address
	Allocations           []*big.Int
	TotalAllocation       *big.Int
	DistributionIncentive uint16
}

// splitCreatedEvent is the non-indexed payload of SplitCreated; the split
// address itself rides in the first indexed topic.
type splitCreatedEvent struct {
	SplitParams SplitParams
	Owner       common.Address
	Creator     common.Address
}
