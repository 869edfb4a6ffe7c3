package schedule

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestConstantPoolDeduplicates(t *testing.T) {
	pool := NewConstantPool()
	a := *uint256.NewInt(42)
	b := *uint256.NewInt(42)
	c := *uint256.NewInt(7)

	r1 := pool.Intern(a)
	r2 := pool.Intern(b)
	r3 := pool.Intern(c)

	if r1 != r2 {
		t.Fatalf("Intern(42) twice gave different refs: %v != %v", r1, r2)
	}
	if r1 == r3 {
		t.Fatalf("Intern(42) and Intern(7) gave the same ref: %v", r1)
	}
	if got := pool.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if got := pool.Get(r1); got != a {
		t.Fatalf("Get(r1) = %v, want %v", got, a)
	}
	if got := pool.Get(r3); got != c {
		t.Fatalf("Get(r3) = %v, want %v", got, c)
	}
}

func TestConstantPoolOrderIsInsertionOrder(t *testing.T) {
	pool := NewConstantPool()
	values := []uint256.Int{*uint256.NewInt(9), *uint256.NewInt(1), *uint256.NewInt(9), *uint256.NewInt(5)}
	var refs []ConstRef
	for _, v := range values {
		refs = append(refs, pool.Intern(v))
	}
	if refs[0] != ConstRef(0) {
		t.Fatalf("refs[0] = %v, want 0", refs[0])
	}
	if refs[1] != ConstRef(1) {
		t.Fatalf("refs[1] = %v, want 1", refs[1])
	}
	if refs[2] != refs[0] {
		t.Fatalf("refs[2] = %v, want duplicate of refs[0] (%v)", refs[2], refs[0])
	}
	if refs[3] != ConstRef(2) {
		t.Fatalf("refs[3] = %v, want 2", refs[3])
	}
	if got := pool.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
}
