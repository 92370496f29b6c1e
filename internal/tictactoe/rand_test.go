package tictactoe

// scriptedRand replays values in order, reducing each one modulo n.
type scriptedRand struct {
	values []int
	calls  int
}

func (that *scriptedRand) IntN(n int) int {
	if len(that.values) == 0 {
		that.calls++
		return 0
	}

	value := that.values[that.calls%len(that.values)]
	that.calls++

	return value % n
}
