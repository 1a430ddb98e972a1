package classifier

import "context"

// EnergyClassifier decides silence from signal energy. It serves browsers
// that report a volume level or ship a raw PCM16LE sample instead of running
// their own voice activity detection.
type EnergyClassifier struct {
	cutoff float64
}

// NewEnergyClassifier builds a classifier with the given normalized RMS
// cutoff (0..1). Non-positive cutoffs fall back to the shipped default.
func NewEnergyClassifier(cutoff float64) *EnergyClassifier {
	if cutoff <= 0 {
		cutoff = 0.05
	}
	return &EnergyClassifier{cutoff: cutoff}
}

func (c *EnergyClassifier) ClassifySample(_ context.Context, volumeLevel float64) (bool, error) {
	return volumeLevel < c.cutoff, nil
}
