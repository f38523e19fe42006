// Package erc20 builds the outbound ERC-20 transfer calldata carried by
// withdrawal vouchers.
package erc20

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// transferSelector is the 4-byte function selector for
// transfer(address,uint256), keccak256("transfer(address,uint256)")[:4].
var transferSelector = [4]byte{0xa9, 0x05, 0x9c, 0xbb}

// EncodeTransfer builds the full ABI-encoded calldata for
// transfer(destination, amount): a 4-byte selector, the destination
// address left-padded to 32 bytes, and the amount as a 32-byte
// big-endian integer.
func EncodeTransfer(destination common.Address, amount uint64) []byte {
	payload := make([]byte, 4+32+32)
	copy(payload[0:4], transferSelector[:])
	copy(payload[4+12:4+32], destination[:])
	binary.BigEndian.PutUint64(payload[4+32+24:4+32+32], amount)
	return payload
}
