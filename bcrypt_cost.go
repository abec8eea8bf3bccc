//go:build !race

package gatehouse

func passwordHashCost() int {
	return 14
}
