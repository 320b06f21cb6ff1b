package expr

import "github.com/me/dfjss/pkg/model"

func testInstance() *model.Instance {
	return &model.Instance{
		Name:     "two-jobs",
		Machines: 1,
		Jobs: []model.JobSpec{
			{Operations: []model.Operation{{Alternatives: []model.Alternative{{Machine: 0, Duration: 6}}}}},
			{Operations: []model.Operation{{Alternatives: []model.Alternative{{Machine: 0, Duration: 2}}}}},
		},
	}
}
