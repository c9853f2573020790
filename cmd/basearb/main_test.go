package main

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestEthToWeiConvertsWholeAndFractional(t *testing.T) {
	assert.Equal(t, big.NewInt(1_000_000_000_000_000_000), ethToWei(1))
	assert.Equal(t, big.NewInt(1_000_000_000_000_000), ethToWei(0.001))
}

func TestGweiToWeiConverts(t *testing.T) {
	assert.Equal(t, big.NewInt(10_000_000_000), gweiToWei(10))
}

func TestBigToUint256RoundTrips(t *testing.T) {
	v := big.NewInt(12345)
	out := bigToUint256(v)
	assert.Equal(t, uint256.NewInt(12345), out)
}

func TestBigToUint256NilStaysNil(t *testing.T) {
	assert.Nil(t, bigToUint256(nil))
}
