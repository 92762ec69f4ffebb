package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	TransferSelector      = "0xa9059cbb"
	BatchTransferSelector = "0xe6930a22"

	transferInputLen = 138
	wordLen          = 64
)

// zeroInput is sent by some wallets for plain value transfers.
var zeroInput = "0x" + strings.Repeat("0", 40)

var ErrMalformedInput = errors.New("malformed call data")

type CallKind int

const (
	CallUnknown CallKind = iota
	CallNative
	CallTransfer
	CallBatchTransfer
)

// Classify recognizes the call data shapes the parsers understand.
func Classify(input string) CallKind {
	input = strings.ToLower(input)
	switch {
	case input == "" || input == "0x" || input == zeroInput:
		return CallNative
	case strings.HasPrefix(input, TransferSelector) && len(input) == transferInputLen:
		return CallTransfer
	case strings.HasPrefix(input, BatchTransferSelector):
		return CallBatchTransfer
	}
	return CallUnknown
}

// Selector returns the 4-byte method id of a Solidity signature.
func Selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}

// DecodeTransfer unpacks transfer(address,uint256) call data.
func DecodeTransfer(input string) (string, *big.Int, error) {
	if Classify(input) != CallTransfer {
		return "", nil, ErrMalformedInput
	}
	amount, ok := new(big.Int).SetString(input[74:138], 16)
	if !ok {
		return "", nil, ErrMalformedInput
	}
	return strings.ToLower("0x" + input[34:74]), amount, nil
}

type TokenTransfer struct {
	Token  string
	To     string
	Amount *big.Int
}

// DecodeBatchTransfer unpacks the batch token transfer call, whose arguments
// are three equally sized dynamic arrays of tokens, recipients and amounts.
// The array length word doubles as the splitter between sections.
func DecodeBatchTransfer(input string) ([]TokenTransfer, error) {
	if !strings.HasPrefix(strings.ToLower(input), BatchTransferSelector) {
		return nil, ErrMalformedInput
	}
	data := input[len(BatchTransferSelector):]
	if len(data) < 4*wordLen || len(data)%wordLen != 0 {
		return nil, ErrMalformedInput
	}

	parts := SplitWords(data, data[3*wordLen:4*wordLen])
	if len(parts) != 4 {
		return nil, ErrMalformedInput
	}
	tokens, recipients, values := parts[1], parts[2], parts[3]
	if len(recipients) != len(tokens) || len(values) != len(tokens) {
		return nil, ErrMalformedInput
	}

	out := make([]TokenTransfer, 0, len(tokens)/wordLen)
	for i := 0; i < len(tokens); i += wordLen {
		amount, ok := new(big.Int).SetString(values[i:i+wordLen], 16)
		if !ok {
			return nil, ErrMalformedInput
		}
		out = append(out, TokenTransfer{
			Token:  strings.ToLower("0x" + tokens[i+24:i+wordLen]),
			To:     strings.ToLower("0x" + recipients[i+24:i+wordLen]),
			Amount: amount,
		})
	}
	return out, nil
}

// SplitWords cuts data into 32-byte words and groups consecutive words into
// parts separated by words equal to splitter.
func SplitWords(data, splitter string) []string {
	var (
		parts   []string
		current strings.Builder
	)
	for i := 0; i < len(data); i += wordLen {
		end := min(i+wordLen, len(data))
		word := data[i:end]
		if word == splitter {
			if current.Len() > 0 {
				parts = append(parts, current.String())
			}
			current.Reset()
			continue
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// ChecksumAddress returns the EIP-55 form of a hex address, or "" when the
// input is not an address.
func ChecksumAddress(address string) string {
	if !common.IsHexAddress(address) {
		return ""
	}
	return common.HexToAddress(address).Hex()
}

// ParseQuantity decodes a hex quantity, tolerating leading zeros.
func ParseQuantity(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, errors.Errorf("invalid hex quantity %q", s)
	}
	return v, nil
}

func ParseUint64(s string) (uint64, error) {
	v, err := ParseQuantity(s)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Errorf("quantity %s overflows uint64", s)
	}
	return v.Uint64(), nil
}
