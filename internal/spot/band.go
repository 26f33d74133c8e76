package spot

// bandEdges lists the amateur allocations by wavelength in metres, using the
// widest ITU region limits.
var bandEdges = []struct {
	meters    int
	low, high uint64
}{
	{160, 1_800_000, 2_000_000},
	{80, 3_500_000, 4_000_000},
	{60, 5_060_000, 5_450_000},
	{40, 7_000_000, 7_300_000},
	{30, 10_100_000, 10_150_000},
	{20, 14_000_000, 14_350_000},
	{17, 18_068_000, 18_168_000},
	{15, 21_000_000, 21_450_000},
	{12, 24_890_000, 24_990_000},
	{10, 28_000_000, 29_700_000},
	{6, 50_000_000, 54_000_000},
	{4, 70_000_000, 70_500_000},
	{2, 144_000_000, 148_000_000},
}

// BandForFrequency maps a dial frequency in Hz to its band in metres.
func BandForFrequency(hz uint64) (int, bool) {
	for _, b := range bandEdges {
		if hz >= b.low && hz <= b.high {
			return b.meters, true
		}
	}
	return 0, false
}
