package job

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("job.service",
	db.Models(&Job{}, &JobApplication{}),
	fx.Provide(NewService),
)
