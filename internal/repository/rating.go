package repository

import (
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"gorm.io/gorm"
)

type scoreAggregate struct {
	TitleID uint
	Rating  float64
}

// averageScores returns the mean review score per title. Titles without
// reviews are absent from the map.
func averageScores(db *gorm.DB, titleIDs []uint) (map[uint]float64, error) {
	out := make(map[uint]float64, len(titleIDs))
	if len(titleIDs) == 0 {
		return out, nil
	}

	var rows []scoreAggregate
	err := db.Model(&models.Review{}).
		Select("title_id, CAST(AVG(score) AS FLOAT) AS rating").
		Where("title_id IN ?", titleIDs).
		Group("title_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.TitleID] = row.Rating
	}
	return out, nil
}

// attachRatings fills Title.Rating in place; it stays nil for unreviewed titles.
func attachRatings(db *gorm.DB, titles []models.Title) error {
	ids := make([]uint, 0, len(titles))
	for _, t := range titles {
		ids = append(ids, t.ID)
	}

	ratings, err := averageScores(db, ids)
	if err != nil {
		return err
	}

	for i := range titles {
		if avg, ok := ratings[titles[i].ID]; ok {
			v := avg
			titles[i].Rating = &v
		}
	}
	return nil
}
