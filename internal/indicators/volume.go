package indicators

import "github.com/nsedesk/signalengine/internal/models"

// VolumeIndicators is the volume-derived report for the most recent candle
// in a window.
type VolumeIndicators struct {
	VolumeMA    Value
	VWAP        Value
	OBV         Value
	MFI         Value
	AccDist     Value
	VolumeRatio Value
}

// VolumeMA computes the simple moving average of volume over period.
func VolumeMA(w models.Window, period int) Value {
	if len(w) < period || period <= 0 {
		return unset
	}
	sum := int64(0)
	for i := len(w) - period; i < len(w); i++ {
		sum += w[i].Volume
	}
	return set(float64(sum) / float64(period))
}

// VWAP computes the Volume Weighted Average Price over the full window.
func VWAP(w models.Window) Value {
	if len(w) == 0 {
		return unset
	}
	var totalVolume int64
	var totalPV float64
	for _, c := range w {
		typical := (c.High + c.Low + c.Close) / 3.0
		totalPV += typical * float64(c.Volume)
		totalVolume += c.Volume
	}
	if totalVolume == 0 {
		return unset
	}
	return set(totalPV / float64(totalVolume))
}

// OBV computes On-Balance Volume across the full window.
func OBV(w models.Window) Value {
	if len(w) < 2 {
		return unset
	}
	obv := float64(w[0].Volume)
	for i := 1; i < len(w); i++ {
		switch {
		case w[i].Close > w[i-1].Close:
			obv += float64(w[i].Volume)
		case w[i].Close < w[i-1].Close:
			obv -= float64(w[i].Volume)
		}
	}
	return set(obv)
}

// MFI computes the Money Flow Index over period: a volume-weighted RSI
// variant using the typical price. Requires at least period+1 candles.
func MFI(w models.Window, period int) Value {
	if len(w) < period+1 {
		return unset
	}

	typical := func(i int) float64 { return (w[i].High + w[i].Low + w[i].Close) / 3.0 }

	start := len(w) - period
	posFlow, negFlow := 0.0, 0.0
	for i := start; i < len(w); i++ {
		prevTP := typical(i - 1)
		tp := typical(i)
		mf := tp * float64(w[i].Volume)
		if tp > prevTP {
			posFlow += mf
		} else if tp < prevTP {
			negFlow += mf
		}
	}

	if negFlow == 0 {
		return set(100)
	}
	ratio := posFlow / negFlow
	return set(100 - (100 / (1 + ratio)))
}

// AccumulationDistribution computes the cumulative Accumulation/
// Distribution line across the full window.
func AccumulationDistribution(w models.Window) Value {
	if len(w) == 0 {
		return unset
	}
	var adLine float64
	for _, c := range w {
		if c.High == c.Low {
			continue
		}
		mfm := ((c.Close - c.Low) - (c.High - c.Close)) / (c.High - c.Low)
		adLine += mfm * float64(c.Volume)
	}
	return set(adLine)
}

// CalculateVolumeIndicators computes the full volume report for the most
// recent candle in w.
func CalculateVolumeIndicators(w models.Window) VolumeIndicators {
	v := VolumeIndicators{
		VolumeMA: VolumeMA(w, 20),
		VWAP:     VWAP(w),
		OBV:      OBV(w),
		MFI:      MFI(w, 14),
		AccDist:  AccumulationDistribution(w),
	}
	if v.VolumeMA.Set && v.VolumeMA.V > 0 {
		current := float64(w[len(w)-1].Volume)
		v.VolumeRatio = set(current / v.VolumeMA.V)
	}
	return v
}

// IsAboveVWAP reports whether currentPrice sits above the computed VWAP.
func (v VolumeIndicators) IsAboveVWAP(currentPrice float64) bool {
	return v.VWAP.Set && currentPrice > v.VWAP.V
}
