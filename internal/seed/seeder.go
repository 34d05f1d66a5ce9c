// Package seed fills a database with fake but consistent data for local
// development and end-to-end tests.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Sizes controls how much data SeedDev creates.
type Sizes struct {
	Users                int
	ProjectsPerUser      int
	FollowsPerUser       int
	LikesPerUser         int
	CommentsPerProject   int
	Groups               int
	DiscussionsPerGroup  int
	RepliesPerDiscussion int
}

// DevSizes is a feed large enough to exercise batching and reply paging.
var DevSizes = Sizes{
	Users:                60,
	ProjectsPerUser:      3,
	FollowsPerUser:       40,
	LikesPerUser:         10,
	CommentsPerProject:   3,
	Groups:               5,
	DiscussionsPerGroup:  4,
	RepliesPerDiscussion: 25,
}

// Seeder handles database seeding operations
type Seeder struct {
	db   *gorm.DB
	rand *rand.Rand
	now  time.Time
}

// NewSeeder creates a seeder. The same seed produces the same data.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	_ = gofakeit.Seed(seed)
	return &Seeder{db: db, rand: rand.New(rand.NewSource(seed)), now: time.Now().UTC()}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context, sizes Sizes) error {
	db := s.db.WithContext(ctx)

	logger.Log.Info("Creating users...", zap.Int("count", sizes.Users))
	users, err := s.seedUsers(db, sizes.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating follows...")
	if err := s.seedFollows(db, users, sizes.FollowsPerUser); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating projects...")
	projects, err := s.seedProjects(db, users, sizes.ProjectsPerUser)
	if err != nil {
		return fmt.Errorf("failed to seed projects: %w", err)
	}

	logger.Log.Info("Creating likes and comments...")
	if err := s.seedLikes(db, users, projects, sizes.LikesPerUser); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}
	if err := s.seedComments(db, users, projects, sizes.CommentsPerProject); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating groups and discussions...")
	if err := s.seedGroups(db, users, sizes); err != nil {
		return fmt.Errorf("failed to seed groups: %w", err)
	}

	return s.Recount(ctx)
}

// SeedTest creates fixed, well-known accounts plus a little content.
func (s *Seeder) SeedTest(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	accounts := []struct{ username, email, name string }{
		{"alice", "alice@example.com", "Alice Smith"},
		{"bob", "bob@example.com", "Bob Johnson"},
		{"charlie", "charlie@example.com", "Charlie Brown"},
		{"diana", "diana@example.com", "Diana Prince"},
		{"eve", "eve@example.com", "Eve Wilson"},
	}

	hash, err := passwordHash()
	if err != nil {
		return err
	}
	var users []models.User
	for _, acct := range accounts {
		user := models.User{
			Email:        acct.email,
			Username:     acct.username,
			DisplayName:  acct.name,
			PasswordHash: &hash,
			PhotoURL:     avatarURL(acct.username),
		}
		err := db.Where("username = ?", acct.username).Attrs(user).FirstOrCreate(&user).Error
		if err != nil {
			return fmt.Errorf("failed to create test user %s: %w", acct.username, err)
		}
		users = append(users, user)
	}

	// alice follows bob and charlie; bob has one private project
	for _, id := range []string{users[1].ID, users[2].ID} {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: users[0].ID, FollowingID: id}).Error; err != nil {
			return err
		}
	}
	projects, err := s.seedProjects(db, users, 2)
	if err != nil {
		return err
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	if err := db.Model(&models.Project{}).Where("id IN ?", ids).
		Update("is_public", gorm.Expr("id <> ?", projects[2].ID)).Error; err != nil {
		return err
	}
	return s.Recount(ctx)
}

// Clean removes all rows (use with caution!)
func (s *Seeder) Clean(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	// Delete in reverse order of dependencies
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("failed to clean %T: %w", all[i], err)
		}
	}
	return nil
}

// Recount rebuilds every cached counter from the relationship rows.
func (s *Seeder) Recount(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	statements := []string{
		"UPDATE users SET follower_count = (SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id)",
		"UPDATE users SET following_count = (SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id)",
		"UPDATE projects SET like_count = (SELECT COUNT(*) FROM project_likes WHERE project_likes.project_id = projects.id)",
		"UPDATE projects SET comment_count = (SELECT COUNT(*) FROM comments WHERE comments.project_id = projects.id)",
		`UPDATE "groups" SET member_count = (SELECT COUNT(*) FROM group_members WHERE group_members.group_id = "groups".id)`,
		"UPDATE discussions SET replies = (SELECT COUNT(*) FROM replies WHERE replies.discussion_id = discussions.id)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("recount: %w", err)
		}
	}
	return nil
}

func passwordHash() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func avatarURL(seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", seed)
}

// pastTime returns a time within the last days days.
func (s *Seeder) pastTime(days int) time.Time {
	return gofakeit.DateRange(s.now.AddDate(0, 0, -days), s.now).UTC()
}

// seedUsers creates users with unique usernames and emails. Every account
// shares DefaultPassword, hashed once.
func (s *Seeder) seedUsers(db *gorm.DB, count int) ([]models.User, error) {
	hash, err := passwordHash()
	if err != nil {
		return nil, err
	}

	taken := map[string]bool{}
	var existing []string
	if err := db.Model(&models.User{}).Pluck("username", &existing).Error; err != nil {
		return nil, err
	}
	for _, u := range existing {
		taken[u] = true
	}

	if count <= 0 {
		return nil, nil
	}
	users := make([]models.User, 0, count)
	for len(users) < count {
		username := strings.ToLower(gofakeit.Username())
		if taken[username] {
			continue
		}
		taken[username] = true
		users = append(users, models.User{
			Email:        fmt.Sprintf("%s@example.com", username),
			Username:     username,
			DisplayName:  gofakeit.Name(),
			Bio:          gofakeit.HipsterSentence(),
			PhotoURL:     avatarURL(username),
			PasswordHash: &hash,
			Preferences:  models.Preferences{Theme: pick(s.rand, []string{models.ThemeLight, models.ThemeDark})},
			CreatedAt:    s.pastTime(365),
		})
	}
	if err := db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Seeder) seedFollows(db *gorm.DB, users []models.User, perUser int) error {
	var follows []models.Follow
	for i, u := range users {
		for _, j := range s.rand.Perm(len(users))[:min(perUser, len(users))] {
			if j == i {
				continue
			}
			follows = append(follows, models.Follow{FollowerID: u.ID, FollowingID: users[j].ID, CreatedAt: s.pastTime(180)})
		}
	}
	if len(follows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&follows, 500).Error
}

// seedProjects gives every user perUser projects; about one in five is private.
func (s *Seeder) seedProjects(db *gorm.DB, users []models.User, perUser int) ([]models.Project, error) {
	var projects []models.Project
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			title := capitalize(gofakeit.Word()) + " " + gofakeit.Word()
			projects = append(projects, models.Project{
				Title:          title,
				Description:    "<p>" + gofakeit.HipsterSentence() + "</p><p>" + gofakeit.HipsterSentence() + "</p>",
				RepoURL:        fmt.Sprintf("https://github.com/%s/%s", u.Username, strings.ToLower(strings.ReplaceAll(title, " ", "-"))),
				IsPublic:       s.rand.Intn(5) != 0,
				AuthorID:       u.ID,
				AuthorName:     u.DisplayName,
				AuthorPhotoURL: u.PhotoURL,
				CreatedAt:      s.pastTime(120),
			})
		}
	}
	if len(projects) == 0 {
		return nil, nil
	}
	if err := db.CreateInBatches(&projects, 200).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Seeder) seedLikes(db *gorm.DB, users []models.User, projects []models.Project, perUser int) error {
	if len(projects) == 0 {
		return nil
	}
	var likes []models.ProjectLike
	for _, u := range users {
		for _, j := range s.rand.Perm(len(projects))[:min(perUser, len(projects))] {
			likes = append(likes, models.ProjectLike{UserID: u.ID, ProjectID: projects[j].ID, CreatedAt: s.pastTime(60)})
		}
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&likes, 500).Error
}

func (s *Seeder) seedComments(db *gorm.DB, users []models.User, projects []models.Project, perProject int) error {
	var comments []models.Comment
	for _, p := range projects {
		for i := 0; i < perProject; i++ {
			author := users[s.rand.Intn(len(users))]
			comments = append(comments, models.Comment{
				ProjectID:      p.ID,
				AuthorID:       author.ID,
				AuthorName:     author.DisplayName,
				AuthorPhotoURL: author.PhotoURL,
				Body:           gofakeit.HipsterSentence(),
				CreatedAt:      gofakeit.DateRange(p.CreatedAt, s.now).UTC(),
			})
		}
	}
	if len(comments) == 0 {
		return nil
	}
	return db.CreateInBatches(&comments, 500).Error
}

// seedGroups creates groups whose members write discussions and replies. Each
// discussion's latest-reply summary matches its last reply.
func (s *Seeder) seedGroups(db *gorm.DB, users []models.User, sizes Sizes) error {
	for g := 0; g < sizes.Groups; g++ {
		creator := users[s.rand.Intn(len(users))]
		group := models.Group{
			Name:        gofakeit.City() + " " + capitalize(gofakeit.Word()) + " Club",
			Description: gofakeit.HipsterSentence(),
			CreatorID:   creator.ID,
		}
		if err := db.Create(&group).Error; err != nil {
			return err
		}

		members := []models.User{creator}
		rows := []models.GroupMember{{GroupID: group.ID, UserID: creator.ID, Role: models.RoleAdmin}}
		for _, j := range s.rand.Perm(len(users))[:min(len(users), 15)] {
			if users[j].ID == creator.ID {
				continue
			}
			members = append(members, users[j])
			rows = append(rows, models.GroupMember{GroupID: group.ID, UserID: users[j].ID, Role: models.RoleMember})
		}
		if err := db.Create(&rows).Error; err != nil {
			return err
		}

		for d := 0; d < sizes.DiscussionsPerGroup; d++ {
			if err := s.seedDiscussion(db, group, members, sizes.RepliesPerDiscussion); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedDiscussion(db *gorm.DB, group models.Group, members []models.User, replyCount int) error {
	author := members[s.rand.Intn(len(members))]
	created := s.pastTime(30)
	discussion := models.Discussion{
		GroupID:      group.ID,
		Title:        strings.TrimSuffix(gofakeit.HipsterSentence(), "."),
		Body:         gofakeit.HipsterSentence() + " " + gofakeit.HipsterSentence(),
		AuthorID:     author.ID,
		AuthorName:   author.DisplayName,
		LastActivity: created,
		CreatedAt:    created,
	}
	if err := db.Create(&discussion).Error; err != nil {
		return err
	}
	if replyCount == 0 {
		return nil
	}

	replies := make([]models.Reply, 0, replyCount)
	at := created
	for i := 0; i < replyCount; i++ {
		at = at.Add(time.Duration(1+s.rand.Intn(90)) * time.Minute)
		who := members[s.rand.Intn(len(members))]
		replies = append(replies, models.Reply{
			DiscussionID: discussion.ID,
			AuthorID:     who.ID,
			AuthorName:   who.DisplayName,
			Body:         gofakeit.HipsterSentence(),
			CreatedAt:    at,
		})
	}
	if err := db.CreateInBatches(&replies, 200).Error; err != nil {
		return err
	}

	last := replies[len(replies)-1]
	summary, err := json.Marshal(models.ReplySummary{
		ReplyID:    last.ID,
		AuthorID:   last.AuthorID,
		AuthorName: last.AuthorName,
		Excerpt:    last.Body,
		CreatedAt:  last.CreatedAt,
	})
	if err != nil {
		return err
	}
	return db.Model(&models.Discussion{}).Where("id = ?", discussion.ID).UpdateColumns(map[string]interface{}{
		"last_activity": last.CreatedAt,
		"last_reply":    string(summary),
	}).Error
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func pick(r *rand.Rand, options []string) string {
	return options[r.Intn(len(options))]
}
