package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketCompanies = []byte("companies")
	bucketCampaigns = []byte("campaigns")
	bucketClicks    = []byte("clicks")
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCompanies, bucketCampaigns, bucketClicks} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// CreateCompany writes a new company record
func (s *BoltStore) CreateCompany(ctx context.Context, c *Company) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCompanies)

		if existing := bucket.Get([]byte(c.ID)); existing != nil {
			return fmt.Errorf("company %s already exists", c.ID)
		}

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal company: %w", err)
		}

		return bucket.Put([]byte(c.ID), data)
	})
}

// GetCompany retrieves a company by ID
func (s *BoltStore) GetCompany(ctx context.Context, id string) (*Company, error) {
	var company *Company

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCompanies).Get([]byte(id))
		if data == nil {
			return nil
		}

		company = &Company{}
		return json.Unmarshal(data, company)
	})

	return company, err
}

// CreateCampaign writes the campaign, its click records and the company
// campaign-list append in a single transaction. Nothing is visible to
// readers until all of it is, so a click arriving before the launch call
// returns still resolves correctly.
func (s *BoltStore) CreateCampaign(ctx context.Context, campaign *Campaign, clicks []*ClickRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		companies := tx.Bucket(bucketCompanies)
		campaigns := tx.Bucket(bucketCampaigns)
		clicksBucket := tx.Bucket(bucketClicks)

		companyData := companies.Get([]byte(campaign.CompanyID))
		if companyData == nil {
			return fmt.Errorf("company %s: %w", campaign.CompanyID, ErrNotFound)
		}

		var company Company
		if err := json.Unmarshal(companyData, &company); err != nil {
			return fmt.Errorf("failed to unmarshal company: %w", err)
		}

		data, err := json.Marshal(campaign)
		if err != nil {
			return fmt.Errorf("failed to marshal campaign: %w", err)
		}
		if err := campaigns.Put([]byte(campaign.ID), data); err != nil {
			return fmt.Errorf("failed to store campaign: %w", err)
		}

		for _, click := range clicks {
			clickData, err := json.Marshal(click)
			if err != nil {
				return fmt.Errorf("failed to marshal click record: %w", err)
			}
			if err := clicksBucket.Put([]byte(click.Token), clickData); err != nil {
				return fmt.Errorf("failed to store click record: %w", err)
			}
		}

		company.Campaigns = append(company.Campaigns, campaign.ID)
		companyData, err = json.Marshal(&company)
		if err != nil {
			return fmt.Errorf("failed to marshal company: %w", err)
		}

		return companies.Put([]byte(company.ID), companyData)
	})
}

// GetCampaign retrieves a campaign by ID
func (s *BoltStore) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var campaign *Campaign

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCampaigns).Get([]byte(id))
		if data == nil {
			return nil
		}

		campaign = &Campaign{}
		return json.Unmarshal(data, campaign)
	})

	return campaign, err
}

// ListCampaignsByCompany returns the company's campaigns in launch order
func (s *BoltStore) ListCampaignsByCompany(ctx context.Context, companyID string) ([]*Campaign, error) {
	var campaigns []*Campaign

	err := s.db.View(func(tx *bolt.Tx) error {
		companyData := tx.Bucket(bucketCompanies).Get([]byte(companyID))
		if companyData == nil {
			return fmt.Errorf("company %s: %w", companyID, ErrNotFound)
		}

		var company Company
		if err := json.Unmarshal(companyData, &company); err != nil {
			return err
		}

		bucket := tx.Bucket(bucketCampaigns)
		for _, id := range company.Campaigns {
			data := bucket.Get([]byte(id))
			if data == nil {
				continue
			}

			var campaign Campaign
			if err := json.Unmarshal(data, &campaign); err != nil {
				continue
			}
			campaigns = append(campaigns, &campaign)
		}

		return nil
	})

	return campaigns, err
}

// GetClick retrieves a click record by tracking token
func (s *BoltStore) GetClick(ctx context.Context, token string) (*ClickRecord, error) {
	var click *ClickRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketClicks).Get([]byte(token))
		if data == nil {
			return nil
		}

		click = &ClickRecord{}
		return json.Unmarshal(data, click)
	})

	return click, err
}

// ListClicksByCampaign returns the campaign's click records in recipient order
func (s *BoltStore) ListClicksByCampaign(ctx context.Context, campaignID string) ([]*ClickRecord, error) {
	var clicks []*ClickRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		campaignData := tx.Bucket(bucketCampaigns).Get([]byte(campaignID))
		if campaignData == nil {
			return fmt.Errorf("campaign %s: %w", campaignID, ErrNotFound)
		}

		var campaign Campaign
		if err := json.Unmarshal(campaignData, &campaign); err != nil {
			return err
		}

		bucket := tx.Bucket(bucketClicks)
		for _, token := range campaign.Tokens {
			data := bucket.Get([]byte(token))
			if data == nil {
				continue
			}

			var click ClickRecord
			if err := json.Unmarshal(data, &click); err != nil {
				continue
			}
			clicks = append(clicks, &click)
		}

		return nil
	})

	return clicks, err
}

// ResolveClick performs the first-click transition inside one write
// transaction. Bolt serializes writers, so two concurrent resolutions of the
// same token cannot both observe Clicked == false, and increments from
// different tokens of the same campaign cannot be lost.
func (s *BoltStore) ResolveClick(ctx context.Context, token string, meta ClickMeta) (*ClickRecord, bool, error) {
	var (
		click *ClickRecord
		first bool
	)

	err := s.db.Update(func(tx *bolt.Tx) error {
		clicksBucket := tx.Bucket(bucketClicks)
		campaigns := tx.Bucket(bucketCampaigns)

		data := clicksBucket.Get([]byte(token))
		if data == nil {
			return nil // unknown token, no mutation
		}

		click = &ClickRecord{}
		if err := json.Unmarshal(data, click); err != nil {
			return fmt.Errorf("failed to unmarshal click record: %w", err)
		}

		if click.Clicked {
			return nil // already counted, no mutation
		}

		now := time.Now()
		click.Clicked = true
		click.ClickedAt = &now
		click.SourceAddr = meta.SourceAddr
		click.UserAgent = meta.UserAgent

		clickData, err := json.Marshal(click)
		if err != nil {
			return fmt.Errorf("failed to marshal click record: %w", err)
		}
		if err := clicksBucket.Put([]byte(token), clickData); err != nil {
			return fmt.Errorf("failed to update click record: %w", err)
		}

		campaignData := campaigns.Get([]byte(click.CampaignID))
		if campaignData == nil {
			return fmt.Errorf("campaign %s: %w", click.CampaignID, ErrNotFound)
		}

		var campaign Campaign
		if err := json.Unmarshal(campaignData, &campaign); err != nil {
			return fmt.Errorf("failed to unmarshal campaign: %w", err)
		}

		campaign.TotalClicked++
		campaignData, err = json.Marshal(&campaign)
		if err != nil {
			return fmt.Errorf("failed to marshal campaign: %w", err)
		}
		if err := campaigns.Put([]byte(campaign.ID), campaignData); err != nil {
			return fmt.Errorf("failed to update campaign: %w", err)
		}

		first = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return click, first, nil
}

// SetDeliveryState records the delivery outcome for a recipient
func (s *BoltStore) SetDeliveryState(ctx context.Context, token string, state DeliveryState, errMsg string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketClicks)

		data := bucket.Get([]byte(token))
		if data == nil {
			return fmt.Errorf("token %s: %w", token, ErrNotFound)
		}

		var click ClickRecord
		if err := json.Unmarshal(data, &click); err != nil {
			return fmt.Errorf("failed to unmarshal click record: %w", err)
		}

		click.Delivery = state
		click.DeliveryError = errMsg

		newData, err := json.Marshal(&click)
		if err != nil {
			return fmt.Errorf("failed to marshal click record: %w", err)
		}

		return bucket.Put([]byte(token), newData)
	})
}

// Counts returns record totals
func (s *BoltStore) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{}

	err := s.db.View(func(tx *bolt.Tx) error {
		counts.Companies = int64(tx.Bucket(bucketCompanies).Stats().KeyN)
		counts.Campaigns = int64(tx.Bucket(bucketCampaigns).Stats().KeyN)

		c := tx.Bucket(bucketClicks).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var click ClickRecord
			if err := json.Unmarshal(v, &click); err != nil {
				continue
			}

			counts.Targets++
			if click.Clicked {
				counts.Clicked++
			}
		}

		return nil
	})

	return counts, err
}

// Close closes the database connection
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying bolt.DB instance
func (s *BoltStore) DB() *bolt.DB {
	return s.db
}
