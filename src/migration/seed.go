package migration

import (
	"context"
	"fmt"
	"math/rand"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/hooks"
	"git.thicket.social/thicket/thicket/src/itemdata"
	"git.thicket.social/thicket/thicket/src/models"
	lorem "github.com/HandmadeNetwork/golorem"
)

// Seeds the database with sample data for local dev. Everything goes through
// the real ingestion pipeline, so the result looks exactly like federated
// traffic would.
func SampleSeed() {
	Migrate(LatestVersion())

	ctx := context.Background()
	conn := db.NewConn()
	defer conn.Close(ctx)

	pipeline := itemdata.NewPipeline(conn, &config.Config, hooks.NewRegistry())

	fmt.Println("Creating local users...")
	alice := seedUser(ctx, conn, "alice", "Alice", models.PageNormal)
	bob := seedUser(ctx, conn, "bob", "Bob", models.PageNormal)
	seedUser(ctx, conn, "gardening", "Gardening Club", models.PageCommunity)

	fmt.Println("Creating remote actors...")
	remotes := []string{
		"https://social.example/users/carol",
		"https://pods.example/u/dave",
		"https://birds.example/@erin",
	}

	fmt.Println("Ingesting sample threads...")
	for i := 0; i < 10; i++ {
		author := remotes[rand.Intn(len(remotes))]
		rootURI := fmt.Sprintf("%s/status/%d", author, 1000+i)

		res := pipeline.Insert(ctx, &models.ItemRecord{
			URI:        rootURI,
			UID:        0,
			Network:    models.NetworkActivityPub,
			Title:      lorem.Sentence(3, 8),
			Body:       lorem.Paragraph(1, 3),
			AuthorLink: author,
			AuthorName: lorem.Word(4, 10),
			Hashtags:   []string{lorem.Word(4, 8), lorem.Word(4, 8)},
		})
		if !res.OK() {
			panic(fmt.Errorf("failed to seed thread root: %s", res.Reason))
		}

		for j := 0; j < rand.Intn(4); j++ {
			replier := remotes[rand.Intn(len(remotes))]
			reply := pipeline.Insert(ctx, &models.ItemRecord{
				URI:        fmt.Sprintf("%s/status/%d", replier, 2000+i*10+j),
				UID:        0,
				Network:    models.NetworkActivityPub,
				ThrParent:  rootURI,
				Body:       lorem.Sentence(5, 20),
				AuthorLink: replier,
			})
			if !reply.OK() {
				panic(fmt.Errorf("failed to seed reply: %s", reply.Reason))
			}
		}
	}

	fmt.Println("Ingesting local wall posts...")
	for _, uid := range []int{alice, bob} {
		res := pipeline.Insert(ctx, &models.ItemRecord{
			UID:     uid,
			Network: models.NetworkNative,
			Body:    lorem.Paragraph(1, 2),
			Wall:    true,
			Origin:  true,
		})
		if !res.OK() {
			panic(fmt.Errorf("failed to seed wall post: %s", res.Reason))
		}
	}

	fmt.Println("Done.")
}

func seedUser(ctx context.Context, conn db.ConnOrTx, username, name string, page models.AccountPage) int {
	uid, err := db.QueryOneScalar[int](ctx, conn,
		`
		INSERT INTO site_user (username, nickname, page_flags)
		VALUES ($1, $2, $3)
		RETURNING id
		`,
		username, name, page,
	)
	if err != nil {
		panic(err)
	}

	url := fmt.Sprintf("%s/profile/%s", config.Config.BaseUrl, username)
	_, err = conn.Exec(ctx,
		`
		INSERT INTO contact (uid, url, nurl, addr, name, nick, network, rel, self)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		`,
		uid, url, itemdata.NormalizeLink(url),
		fmt.Sprintf("%s@%s", username, config.Config.Hostname),
		name, username, models.NetworkNative, models.RelFriend,
	)
	if err != nil {
		panic(err)
	}
	return uid
}
