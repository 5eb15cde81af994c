// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

func TestExtractDate_FinnishForm(t *testing.T) {
	d := extractDate("Ympäristölautakunnan kokous 12.3.2025 klo 14")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), *d)
}

func TestExtractDate_ISOForm(t *testing.T) {
	d := extractDate("Pöytäkirja 2025-03-12")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), *d)
}

func TestExtractDate_FinnishWinsOverISO(t *testing.T) {
	d := extractDate("1.2.2025 (myös 2025-06-05)")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), *d)
}

func TestExtractDate_InvalidCalendarDateFallsThrough(t *testing.T) {
	// 31.2.2025 does not exist; the ISO pattern still gets its chance.
	d := extractDate("31.2.2025 sekä 2025-06-05")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), *d)

	assert.Nil(t, extractDate("kokous 31.2.2025"))
	assert.Nil(t, extractDate("ei päivämäärää"))
}

func TestTWebDatePatterns_AcceptSlashes(t *testing.T) {
	d := firstDate("kokous 5/6/2025", twebDatePatterns)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), *d)

	assert.Nil(t, extractDate("kokous 5/6/2025"))
}

func TestExtractBody_SpecificBeforeGeneric(t *testing.T) {
	assert.Equal(t, "Kaupunginvaltuusto", extractBody("Rovaniemen kaupunginvaltuusto 12.3.2025", cloudncBodies))
	assert.Equal(t, "Valtuusto", extractBody("Valtuuston kokous", cloudncBodies))
	assert.Equal(t, "Ympäristölautakunta", extractBody("ympäristölautakunta", cloudncBodies))
	assert.Equal(t, "Tuntematon", extractBody("Jokin muu asiakirja", cloudncBodies))
}

func TestExtractBody_DynastyOrderIsFirstMatchWins(t *testing.T) {
	// "hallitus" sits before "maakuntahallitus" in the table, so the
	// generic name wins; "maakuntavaltuusto" likewise maps to Valtuusto.
	assert.Equal(t, "Hallitus", extractBody("Maakuntahallitus 1.1.2025", dynastyBodies))
	assert.Equal(t, "Valtuusto", extractBody("Maakuntavaltuusto", dynastyBodies))
	assert.Equal(t, "Lupalautakunta", extractBody("Lupajaosto", dynastyBodies))
}

func TestExtractBody_WebsiteCanonicalNames(t *testing.T) {
	assert.Equal(t, "Kunnanhallitus", extractBody("Kunnanhallitus 7.4.2025", websiteBodies))
	assert.Equal(t, "Kunnanvaltuusto", extractBody("valtuuston esityslista", websiteBodies))
	assert.Equal(t, "Elinvoimalautakunta", extractBody("Elinvoimalautakunnan päätökset", websiteBodies))
}

func TestDocTypeForPath(t *testing.T) {
	assert.Equal(t, types.DocMinutes, docTypeForPath("meetings"))
	assert.Equal(t, types.DocAgenda, docTypeForPath("agendas"))
	assert.Equal(t, types.DocDecision, docTypeForPath("officer_decisions"))
	assert.Equal(t, types.DocAnnouncement, docTypeForPath("announcements"))
	assert.Equal(t, types.DocZoning, docTypeForPath("zoning"))
	assert.Equal(t, types.DocMinutes, docTypeForPath("anything-else"))
}

func TestConfiguredPaths_CanonicalOrder(t *testing.T) {
	src := types.Source{Config: types.PathConfig{Paths: map[string]string{
		"zoning":   "/kaavat",
		"meetings": "/kokoukset",
		"agendas":  "",
	}}}
	got := configuredPaths(src)
	require.Len(t, got, 2)
	assert.Equal(t, pathEntry{path: "/kokoukset", key: "meetings"}, got[0])
	assert.Equal(t, pathEntry{path: "/kaavat", key: "zoning"}, got[1])
}

func TestMunicipalityName(t *testing.T) {
	assert.Equal(t, "Inari", municipalityName(types.Source{
		Municipality: "Inari",
	}))
	assert.Equal(t, "Lapin liitto", municipalityName(types.Source{
		Municipality: "Inari",
		Config:       types.PathConfig{Municipality: "Lapin liitto"},
	}))
	assert.Equal(t, "Unknown", municipalityName(types.Source{}))
}

func TestTruncateRunes_KeepsMultibyteIntact(t *testing.T) {
	assert.Equal(t, "ympä", truncateRunes("ympäristö", 4))
	assert.Equal(t, "ab", truncateRunes("ab", 100))
}

func TestStableID_Deterministic(t *testing.T) {
	a := types.DocumentRef{SourceURL: "https://example.fi/kokous/1"}
	b := types.DocumentRef{SourceURL: "https://example.fi/kokous/1"}
	c := types.DocumentRef{SourceURL: "https://example.fi/kokous/2"}

	assert.Equal(t, a.StableID(), b.StableID())
	assert.NotEqual(t, a.StableID(), c.StableID())
	assert.Len(t, a.StableID(), 16)
}
