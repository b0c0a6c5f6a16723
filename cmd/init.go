// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pvfacts/db"
	"github.com/penny-vault/pvfacts/healthcheck"
	"github.com/penny-vault/pvfacts/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type dbConfig struct {
	URL string `toml:"url"`
}

type edgarConfig struct {
	UserAgent string `toml:"user_agent"`
}

type healthchecksConfig struct {
	CheckID string `toml:"check_id,omitempty"`
}

// fileConfig is the layout of $HOME/.pvfacts.toml
type fileConfig struct {
	DB           dbConfig           `toml:"db"`
	Edgar        edgarConfig        `toml:"edgar"`
	Healthchecks healthchecksConfig `toml:"healthchecks"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and setup schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myLibrary := &library.Library{}
		config := fileConfig{}

		var (
			monitored bool
			apiKey    string
		)

		form := huh.NewForm(
			// Gather details about the library and who owns it
			huh.NewGroup(
				huh.NewInput().
					Title("Give the library a name:").
					Value(&myLibrary.Name),

				huh.NewInput().
					Title("Who owns the library?").
					Value(&myLibrary.Owner),

				huh.NewInput().
					Title("Contact email sent to the SEC with every request:").
					Value(&config.Edgar.UserAgent).
					Validate(func(contact string) error {
						if strings.TrimSpace(contact) == "" {
							return errors.New("the SEC requires a contact address")
						}
						return nil
					}),
			),

			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&myLibrary.DBUrl).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			// Optional monitoring of scheduled ingestion runs
			huh.NewGroup(
				huh.NewConfirm().
					Title("Monitor ingestion runs with healthchecks.io?").
					Value(&monitored),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering database settings")
		}

		if monitored {
			keyForm := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("healthchecks.io API key:").
						Value(&apiKey).
						Password(true),
				),
			)

			if err := keyForm.Run(); err != nil {
				log.Fatal().Err(err).Msg("error gathering healthchecks.io settings")
			}

			checkID, err := healthcheck.New(apiKey).Create(ctx, "pvfacts ingest "+myLibrary.Name, "pvfacts-ingest", []string{"pvfacts"}, "0 2 * * *")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create healthchecks.io check")
			}

			config.Healthchecks.CheckID = checkID
		}

		log.Info().Msg("creating database tables")

		// run migration
		err = db.Migrate(myLibrary.DBUrl)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")
		log.Info().Msg("Saving library name and owner to database")

		// save library name and owner to database
		if err := myLibrary.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myLibrary.Close()

		err = myLibrary.SaveDB(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("error saving library settings to database")
		}

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		config.DB.URL = myLibrary.DBUrl

		configFN := filepath.Join(home, ".pvfacts.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving configuration to config file")
		configData, err := toml.Marshal(config)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0600)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your fact library has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
