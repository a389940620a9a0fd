package malloc

import "fmt"

// Example demonstrates the basic allocate/free lifecycle. It has no
// Output comment (and so isn't checked for exact output) because the
// returned capacities depend on internal block-size rounding.
func Example() {
	a, err := New()
	if err != nil {
		panic(err)
	}

	b1 := a.Allocate(24)
	b2 := a.Allocate(4000)

	fmt.Println(len(b1) == 24)
	fmt.Println(len(b2) == 4000)

	a.Free(b1)
	a.Free(b2)
}
