package wifi

const (
	MinRSSI = -100
	MaxRSSI = -55
)

// SignalLevel buckets rssi into numLevels linear levels in [0, numLevels-1].
func SignalLevel(rssi, numLevels int) int {
	if numLevels <= 1 {
		return 0
	}
	if rssi <= MinRSSI {
		return 0
	}
	if rssi >= MaxRSSI {
		return numLevels - 1
	}
	partition := (MaxRSSI - MinRSSI) / (numLevels - 1)
	if partition == 0 {
		partition = 1
	}
	level := (rssi - MinRSSI) / partition
	if level > numLevels-1 {
		level = numLevels - 1
	}
	return level
}
