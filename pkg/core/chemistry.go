// Package core provides mass constants and unit conversions
package core

import "math"

// Monoisotopic masses
const (
	MassH   = 1.0078250321
	MassC   = 12.0000000000
	MassCH2 = MassC + 2*MassH
)

// PPMToDalton converts a ppm tolerance into an absolute one at the given m/z.
func PPMToDalton(mz, ppm float64) float64 {
	return mz * ppm * 1e-6
}

// DaltonToPPM expresses an absolute mass error relative to mz.
func DaltonToPPM(mz, delta float64) float64 {
	if mz == 0 {
		return 0
	}
	return delta / mz * 1e6
}

// NominalMass rounds an m/z value to the nearest integer mass.
func NominalMass(mz float64) int {
	return int(math.Round(mz))
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
