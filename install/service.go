package install

import (
	"fmt"
	"os"
)

// DefaultServicePath is where the systemd unit is installed.
const DefaultServicePath = "/etc/systemd/system/codoscraper.service"

// Service writes the embedded systemd unit to dest. The caller still
// needs to run systemctl daemon-reload and enable the unit.
func Service(dest string) error {
	data, err := Content.ReadFile("codoscraper.service")
	if err != nil {
		return fmt.Errorf("Error reading embedded service file: %w", err)
	}

	err = os.WriteFile(dest, data, 0644)
	if err != nil {
		return fmt.Errorf("Error writing %v: %w", dest, err)
	}

	return nil
}
