package utils

import "github.com/rs/zerolog/log"

// Must stops the process when err is set. Use only during startup.
func Must(err error, what string) {
	if err != nil {
		log.Fatal().Err(err).Msg(what)
	}
}
