package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TALENTGRID_TEST_MODE") == "" {
			_ = os.Setenv("TALENTGRID_TEST_MODE", "1")
		}
	})
}
