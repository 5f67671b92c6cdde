package db

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rotisserie/eris"

	"github.com/KromaEnergia/api-marketplace/internal/config"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SecretGetter is the subset of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// newSecretGetter é variável para os testes trocarem o cliente AWS.
var newSecretGetter = func(ctx context.Context) (SecretGetter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "db: load aws config")
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// retrieveCredentials usa usuário e senha da configuração quando ambos estão
// presentes; caso contrário busca o segredo SecretID no Secrets Manager.
func retrieveCredentials(cfg config.StoreConfig) (string, string, error) {
	if cfg.User != "" && cfg.Password != "" {
		return cfg.User, cfg.Password, nil
	}
	if cfg.SecretID == "" {
		return "", "", eris.New("db: no credentials configured and store.secret_id is empty")
	}

	ctx := context.Background()
	secrets, err := newSecretGetter(ctx)
	if err != nil {
		return "", "", err
	}
	creds, err := fetchCredentials(ctx, secrets, cfg.SecretID)
	if err != nil {
		return "", "", err
	}
	return creds.Username, creds.Password, nil
}

func fetchCredentials(ctx context.Context, secrets SecretGetter, secretID string) (*Credentials, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String("AWSCURRENT"), // VersionStage defaults to AWSCURRENT if unspecified
	}

	result, err := secrets.GetSecretValue(ctx, input)
	if err != nil {
		return nil, eris.Wrapf(err, "db: get secret %s", secretID)
	}
	if result.SecretString == nil {
		return nil, eris.Errorf("db: secret %s has no string value", secretID)
	}

	var secret Credentials
	if err = json.Unmarshal([]byte(*result.SecretString), &secret); err != nil {
		return nil, eris.Wrap(err, "db: decode secret")
	}
	return &secret, nil
}
