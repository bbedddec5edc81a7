package analysis

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
	}{
		{"baixa", SeverityLow},
		{"Baixo", SeverityLow},
		{"LEVE", SeverityLow},
		{"low", SeverityLow},
		{"media", SeverityMedium},
		{"Média", SeverityMedium},
		{"moderada", SeverityMedium},
		{"alta", SeverityHigh},
		{"  Grave  ", SeverityHigh},
		{"high", SeverityHigh},
		{"crítica", SeverityCritical},
		{"CRITICO", SeverityCritical},
		{"critical", SeverityCritical},
		{"", SeverityMedium},
		{"gravissima", SeverityMedium},
	}
	for _, tc := range cases {
		if got := NormalizeSeverity(tc.in); got != tc.want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(SeverityLow, SeverityCritical); got != SeverityCritical {
		t.Errorf("MaxSeverity = %q, want critica", got)
	}
	if got := MaxSeverity(SeverityHigh, SeverityMedium); got != SeverityHigh {
		t.Errorf("MaxSeverity = %q, want alta", got)
	}
}

func TestFoldAccents(t *testing.T) {
	if got := FoldAccents("proteção às condições ergonômicas"); got != "protecao as condicoes ergonomicas" {
		t.Errorf("FoldAccents = %q", got)
	}
}

func TestRiskFromScore(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{100, RiskLow},
		{85, RiskLow},
		{84.9, RiskMedium},
		{70, RiskMedium},
		{69, RiskHigh},
		{50, RiskHigh},
		{49.9, RiskCritical},
		{0, RiskCritical},
	}
	for _, tc := range cases {
		if got := RiskFromScore(tc.score); got != tc.want {
			t.Errorf("RiskFromScore(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
