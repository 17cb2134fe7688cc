package loyalty

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/levelup-gamer/storefront/internal/models"
)

// LoadConfig reads the tier and points-rule tables from static JSON
// files. A missing or corrupt file logs a warning and leaves that
// table empty, so the resolver's hardcoded fallback takes over and the
// loyalty math stays functional.
func LoadConfig(levelsPath, rulesPath string, multiplier float64, log *slog.Logger) Config {
	cfg := Config{BaseMultiplier: multiplier}

	if levelsPath != "" {
		var levels []models.LoyaltyLevel
		if err := readJSONFile(levelsPath, &levels); err != nil {
			log.Warn("failed to load loyalty levels, using fallback table", "path", levelsPath, "error", err)
		} else {
			cfg.Levels = levels
		}
	}

	if rulesPath != "" {
		var rules []models.PointsRule
		if err := readJSONFile(rulesPath, &rules); err != nil {
			log.Warn("failed to load points rules, using fallback rate", "path", rulesPath, "error", err)
		} else {
			cfg.Rules = rules
		}
	}

	return cfg
}

func readJSONFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
