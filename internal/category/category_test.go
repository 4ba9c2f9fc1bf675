package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajasatyajit/civictriage/internal/models"
)

func TestDefaultRegistryOrder(t *testing.T) {
	r := Default()
	names := make([]string, 0)
	for _, d := range r.All() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		Pothole, Streetlight, Litter, Graffiti, Safety, Infrastructure, Social, Other, Irrelevant,
	}, names)

	labels := r.Labels()
	require.Len(t, labels, 9)
	assert.Equal(t, "pothole and road damage", labels[0])
	assert.Equal(t, "irrelevant text, personal statement, or gibberish", labels[8])
}

func TestIrrelevantIsHidden(t *testing.T) {
	r := Default()
	d, ok := r.Get(Irrelevant)
	require.True(t, ok)
	assert.False(t, d.UserFacing)
	assert.Empty(t, d.Keywords)

	for _, uf := range r.UserFacing() {
		assert.NotEqual(t, Irrelevant, uf.Name)
	}
	assert.Len(t, r.UserFacing(), 8)
}

func TestByLabel(t *testing.T) {
	r := Default()
	d, ok := r.ByLabel("safety hazard or danger")
	require.True(t, ok)
	assert.Equal(t, Safety, d.Name)

	_, ok = r.ByLabel("weather")
	assert.False(t, ok)
}

func TestDefaultSeverity(t *testing.T) {
	r := Default()
	assert.Equal(t, models.SeverityHigh, r.DefaultSeverity(Pothole))
	assert.Equal(t, models.SeverityLow, r.DefaultSeverity(Litter))
	assert.Equal(t, models.SeverityMedium, r.DefaultSeverity(Other))
	assert.Equal(t, models.SeverityMedium, r.DefaultSeverity("unknown"))
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{
			name: "duplicate label",
			defs: []Definition{
				{Name: "a", ClassifierLabel: "same", DefaultSeverity: models.SeverityLow},
				{Name: "b", ClassifierLabel: "same", DefaultSeverity: models.SeverityLow},
			},
		},
		{
			name: "duplicate name",
			defs: []Definition{
				{Name: "a", ClassifierLabel: "x", DefaultSeverity: models.SeverityLow},
				{Name: "a", ClassifierLabel: "y", DefaultSeverity: models.SeverityLow},
			},
		},
		{
			name: "missing label",
			defs: []Definition{{Name: "a", DefaultSeverity: models.SeverityLow}},
		},
		{
			name: "bad severity",
			defs: []Definition{{Name: "a", ClassifierLabel: "x", DefaultSeverity: "extreme"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs)
			assert.Error(t, err)
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	r := Default()
	all := r.All()
	all[0].Name = "mutated"
	d, _ := r.Get(Pothole)
	assert.Equal(t, Pothole, d.Name)
}
