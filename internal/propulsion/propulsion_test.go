package propulsion

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTsiolkovskyKnownValue(t *testing.T) {
	got := Tsiolkovsky(300, 1000, 400)
	want := 2695.7
	if !almostEqual(got, want, 1.0) {
		t.Errorf("Tsiolkovsky(300, 1000, 400) = %v, want ~%v", got, want)
	}
}

func TestTsiolkovskyEdgeCases(t *testing.T) {
	if got := Tsiolkovsky(300, 1000, 1000); got != 0 {
		t.Errorf("Tsiolkovsky with wet==dry = %v, want 0", got)
	}
	if got := Tsiolkovsky(300, 400, 1000); got != 0 {
		t.Errorf("Tsiolkovsky with wet<dry = %v, want 0", got)
	}
	if got := Tsiolkovsky(300, 1000, 0); got != 0 {
		t.Errorf("Tsiolkovsky with dry<=0 = %v, want 0", got)
	}
	if got := Tsiolkovsky(300, 1000, -5); got != 0 {
		t.Errorf("Tsiolkovsky with negative dry = %v, want 0", got)
	}
}

func TestStageDeltaVMultiStage(t *testing.T) {
	stages := []Stage{
		{WetMass: 10000, DryMass: 2000, Isp: 280},
		{WetMass: 3000, DryMass: 500, Isp: 350},
	}
	want := 280*G0*math.Log(13000.0/5000.0) + 350*G0*math.Log(3000.0/500.0)
	got := StageDeltaV(stages, 0)
	if !almostEqual(got, want, 1.0) {
		t.Errorf("StageDeltaV = %v, want ~%v", got, want)
	}
}

func TestStageDeltaVWithPayload(t *testing.T) {
	stages := []Stage{{WetMass: 10000, DryMass: 2000, Isp: 280}}
	noPayload := StageDeltaV(stages, 0)
	withPayload := StageDeltaV(stages, 1000)
	if withPayload >= noPayload {
		t.Errorf("adding payload mass should reduce delta-v: no-payload=%v, with-payload=%v", noPayload, withPayload)
	}
}

func TestMassFlowRate(t *testing.T) {
	if got := MassFlowRate(1000, 0); got != 0 {
		t.Errorf("MassFlowRate with isp<=0 = %v, want 0", got)
	}
	got := MassFlowRate(1000000, 300)
	want := 1000000.0 / (300 * G0)
	if !almostEqual(got, want, 1e-6) {
		t.Errorf("MassFlowRate = %v, want %v", got, want)
	}
}

func TestThrustToWeight(t *testing.T) {
	if got := ThrustToWeight(1000, 0, G0); got != 0 {
		t.Errorf("ThrustToWeight with mass<=0 = %v, want 0", got)
	}
	got := ThrustToWeight(20000, 1000, G0)
	want := 20000.0 / (1000 * G0)
	if !almostEqual(got, want, 1e-9) {
		t.Errorf("ThrustToWeight = %v, want %v", got, want)
	}
}

func TestBurnTime(t *testing.T) {
	if got := BurnTime(1000, 0); got != 0 {
		t.Errorf("BurnTime with mdot<=0 = %v, want 0", got)
	}
	if got := BurnTime(1000, 10); got != 100 {
		t.Errorf("BurnTime(1000, 10) = %v, want 100", got)
	}
}
