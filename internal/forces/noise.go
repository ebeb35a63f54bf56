package forces

import "math"

const sqrt3 = 1.7320508075688772

// mix is the splitmix64 finaliser.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// PairNoise returns the random variate θ_ij for one force evaluation. It is
// uniform with zero mean and unit variance, symmetric in (i, j), and depends
// only on key and the pair, so any evaluation order yields the same forces.
func PairNoise(key uint64, i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	h := mix(key ^ mix(uint64(i)<<32|uint64(uint32(j))))
	u := float64(h>>11) * (1.0 / (1 << 53))
	return sqrt3 * (2*u - 1)
}

// NoiseAmplitude returns σ = sqrt(2 γ kT), the fluctuation-dissipation partner
// of the friction coefficient γ.
func NoiseAmplitude(gamma, kT float64) float64 {
	return math.Sqrt(2 * gamma * kT)
}
