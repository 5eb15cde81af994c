// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in Lapland source set",
	Long: `Seed registers every known Lapland municipality and regional
organization with its publishing platform and listing paths. Existing
sources (matched by municipality) are updated in place, so the command
is safe to re-run.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	added, updated, err := upsertSources(context.Background(), st, laplandSources, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nSeed summary: %d added, %d updated (total: %d)\n",
		added, updated, added+updated)
	return nil
}

// laplandSources is the hand-collected inventory of Lapland publishing
// sites: every municipality plus the regional organizations, with the
// per-platform listing paths verified against the live sites.
var laplandSources = []types.Source{
	// CloudNC municipalities.
	{
		Municipality: "Enontekiö",
		Platform:     "cloudnc",
		BaseURL:      "https://enontekio.cloudnc.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/fi-FI",
			"officer_decisions": "/fi-FI/Viranhaltijat",
			"announcements":     "/fi-FI/Kuulutukset",
			"zoning":            "/fi-FI/Kaavat",
		}},
	},
	{
		Municipality: "Muonio",
		Platform:     "cloudnc",
		BaseURL:      "https://muonio.cloudnc.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/fi-FI",
			"officer_decisions": "/fi-FI/Viranhaltijat",
			"announcements":     "/fi-FI/Kuulutukset",
		}},
	},
	{
		Municipality: "Rovaniemi",
		Platform:     "cloudnc",
		BaseURL:      "https://rovaniemi.cloudnc.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/fi-FI",
			"officer_decisions": "/fi-FI/Viranhaltijat",
			"announcements":     "/fi-FI/Kuulutukset",
		}},
	},

	// Dynasty municipalities.
	{
		Municipality: "Inari",
		Platform:     "dynasty",
		BaseURL:      "https://inari.oncloudos.com",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_frames",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
			"announcements":     "/cgi/DREQUEST.PHP?alo=1&page=announcement_search&tzo=-180",
		}},
	},
	{
		Municipality: "Kemi",
		Platform:     "dynasty",
		BaseURL:      "https://kemi.oncloudos.com",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":      "/cgi/DREQUEST.PHP?page=meeting_frames",
			"announcements": "/cgi/DREQUEST.PHP?alo=1&page=announcement_search&tzo=-120",
		}},
	},
	{
		Municipality: "Kemijärvi",
		Platform:     "dynasty",
		BaseURL:      "https://kemijarvi.oncloudos.com",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_frames",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
			"announcements":     "/cgi/DREQUEST.PHP?alo=1&page=announcement_search&tzo=-120",
		}},
	},
	{
		Municipality: "Kittilä",
		Platform:     "dynasty",
		BaseURL:      "https://dynasty10.kittila.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_frames",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
			"announcements":     "/cgi/DREQUEST.PHP?alo=1&page=announcement_search&tzo=-120",
		}},
	},
	{
		Municipality: "Pelkosenniemi",
		Platform:     "dynasty",
		BaseURL:      "https://paatoksetd10.pelkosenniemi.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_handlers&id=",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
		}},
	},
	{
		Municipality: "Ranua",
		Platform:     "dynasty",
		BaseURL:      "https://paatoksetd10.ranua.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_frames",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
		}},
	},
	{
		Municipality: "Savukoski",
		Platform:     "dynasty",
		BaseURL:      "https://paatoksetd10.savukoski.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_frames",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
			"announcements":     "/cgi/DREQUEST.PHP?alo=1&page=announcement_search&tzo=-120",
		}},
	},
	{
		Municipality: "Simo",
		Platform:     "dynasty",
		BaseURL:      "https://simo.oncloudos.com",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_frames",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
		}},
	},
	{
		Municipality: "Tornio",
		Platform:     "dynasty",
		BaseURL:      "https://tornio.oncloudos.com",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_frames",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_frames",
		}},
	},

	// TWeb municipalities.
	{
		Municipality: "Keminmaa",
		Platform:     "tweb",
		BaseURL:      "https://keminmaa.tweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebscr/epj_tek_tweb.htm",
			"officer_decisions": "/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebscr/kuullist_tweb.htm",
		}},
	},
	{
		Municipality: "Kolari",
		Platform:     "tweb",
		BaseURL:      "https://kolari.tweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebscr/epj_tek_tweb.htm",
			"officer_decisions": "/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebscr/kuullist_tweb.htm",
		}},
	},
	{
		Municipality: "Pello",
		Platform:     "tweb",
		BaseURL:      "https://pello-julkaisu.triplancloud.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebscr/epj_tek_tweb.htm",
			"officer_decisions": "/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebscr/kuullist_tweb.htm",
		}},
	},
	{
		Municipality: "Posio",
		Platform:     "tweb",
		BaseURL:      "https://posio.tweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebbin/dbisa.dll/ktwebscr/epj_tek_tweb.htm",
			"officer_decisions": "/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebscr/kuullist_tweb.htm",
		}},
	},
	{
		Municipality: "Salla",
		Platform:     "tweb",
		BaseURL:      "http://salla.tweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebbin/dbisa.dll/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebbin/dbisa.dll/ktwebscr/epj_tek_tweb.htm",
			"officer_decisions": "/ktwebbin/dbisa.dll/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebbin/dbisa.dll/ktwebscr/kuullist_tweb.htm",
		}},
	},
	{
		Municipality: "Sodankylä",
		Platform:     "tweb",
		BaseURL:      "https://sodankyla.tweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebscr/epj_tek_tweb.htm",
			"officer_decisions": "/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebscr/kuullist_tweb.htm",
		}},
	},
	{
		Municipality: "Tervola",
		Platform:     "tweb",
		BaseURL:      "http://tervola.ktweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings": "/ktwebbin/dbisa.dll/ktwebscr/pk_tek.htm",
			"agendas":  "/ktwebbin/dbisa.dll/ktwebscr/epj_tek.htm",
		}},
	},
	{
		Municipality: "Ylitornio",
		Platform:     "tweb",
		BaseURL:      "https://ylitornio.tweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebscr/epj_kokl_tweb.htm",
			"officer_decisions": "/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebscr/kuullist_tweb.htm",
		}},
	},

	// Municipal website sources.
	{
		Municipality: "Utsjoki",
		Platform:     "municipal_website",
		BaseURL:      "https://www.utsjoki.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/kunta-ja-paatoksenteko/paatoksenteko/esityslistat-ja-poytakirjat/",
			"officer_decisions": "/kunta-ja-paatoksenteko/paatoksenteko/viranhaltijapaatokset/",
		}},
	},

	// Regional organizations.
	{
		Municipality: "Lapin Liitto",
		Platform:     "dynasty",
		BaseURL:      "https://lapinliittod10.oncloudos.com",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/cgi/DREQUEST.PHP?page=meeting_handlers&id=",
			"officer_decisions": "/cgi/DREQUEST.PHP?page=official_handlers&id=",
		}},
	},
	{
		Municipality: "Lapin ELY-keskus",
		Platform:     "municipal_website",
		BaseURL:      "https://www.ely-keskus.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"announcements": "/-/lap-kuulutukset",
		}},
	},
	{
		Municipality: "Lapin hyvinvointialue",
		Platform:     "tweb",
		BaseURL:      "https://lapha-julkaisu.tweb.fi",
		Enabled:      true,
		Config: types.PathConfig{Paths: map[string]string{
			"meetings":          "/ktwebscr/pk_tek_tweb.htm",
			"agendas":           "/ktwebscr/epj_tek_tweb.htm",
			"officer_decisions": "/ktwebscr/vparhaku_tweb.htm",
			"announcements":     "/ktwebscr/kuullist_tweb.htm",
		}},
	},
}
