package params

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func benchLimits(b *testing.B, n int) []Param {
	b.Helper()
	limits := make([]TokenLimit, n)
	for i := range limits {
		limits[i] = TokenLimit{
			Token: common.BigToAddress(new(big.Int).Lsh(big.NewInt(1), uint(i+100))),
			Limit: ValueFromUint64(uint64(i+1) * 1_000_000),
		}
	}
	ps, err := AmountLimits(0, 2, limits, nil)
	if err != nil {
		b.Fatal(err)
	}
	return ps
}

func BenchmarkEncodeProgram(b *testing.B) {
	ps := benchLimits(b, 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeProgram(ps); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeProgram(b *testing.B) {
	prog, err := EncodeProgram(benchLimits(b, 8))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeProgram(prog); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCheck(b *testing.B) {
	ps := benchLimits(b, 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Check(ps)
	}
}
