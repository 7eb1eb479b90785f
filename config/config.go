// Package config holds the server's tunables, loaded from a YAML file with
// sane defaults so a bare `gameserver` invocation still runs.
package config

// Config collects every server-wide tunable named in spec section 4 and its
// ambient-stack expansion: room capacity, tick rate, the per-game length
// ceiling, listen address/CORS, which game kinds are registered, the NPC
// agent directory, and the psiturk/JWT secrets the auth and experiment-mode
// paths need.
type Config struct {
	ListenAddr         string   `yaml:"listen_addr"`
	MaxGames           int      `yaml:"max_games"`
	MaxFPS             int      `yaml:"max_fps"`
	MaxGameTimeSeconds int      `yaml:"max_game_time_seconds"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	Kinds              []string `yaml:"kinds"`
	AgentDir           string   `yaml:"agent_dir"`
	ExperimentMode     bool     `yaml:"experiment_mode"`
	PSITurkKey         string   `yaml:"psiturk_key"`
	JWTSecret          string   `yaml:"jwt_secret"`
}

// Default returns the configuration a bare invocation runs with: 100 rooms,
// 30 ticks/second, a ten-minute game-length ceiling, and both
// bundled game kinds registered.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		MaxGames:           100,
		MaxFPS:             30,
		MaxGameTimeSeconds: 600,
		AllowedOrigins:     []string{"http://localhost:3000"},
		Kinds:              []string{"connectfour", "gridrelay"},
		AgentDir:           "agents",
	}
}
